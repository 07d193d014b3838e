// ABOUTME: TUI view for the manual meeting sync
// ABOUTME: Runs the reconciler, shows the last run's statistics and an activity log
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(20)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

func (m Model) renderSyncView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("Meeting Sync"))
	s.WriteString("\n\n")

	s.WriteString(syncLabelStyle.Render("Status"))
	switch {
	case m.syncing:
		s.WriteString(syncSyncingStyle.Render(m.spinner.View() + " Syncing..."))
	case m.lastStats != nil && m.lastStats.Error != "":
		s.WriteString(syncErrorStyle.Render("✗ Error: " + m.lastStats.Error))
	default:
		s.WriteString(syncIdleStyle.Render("✓ Idle"))
	}
	s.WriteString("\n")

	if m.reconciler != nil {
		if last, ok := m.reconciler.LastSyncTime(); ok {
			s.WriteString(syncLabelStyle.Render("Last synced"))
			s.WriteString(syncMessageStyle.Render(formatTimeSince(last)))
			s.WriteString("\n")
		}
	}

	if st := m.lastStats; st != nil {
		s.WriteString("\n")
		s.WriteString(syncHeaderStyle.Render("Last Run"))
		s.WriteString("\n\n")
		s.WriteString(syncLabelStyle.Render("Meetings"))
		s.WriteString(fmt.Sprintf("%d of %d processed\n", st.MeetingsProcessed, st.TotalMeetings))
		s.WriteString(syncLabelStyle.Render("New contacts"))
		s.WriteString(fmt.Sprintf("%d\n", st.NewContacts))
		s.WriteString(syncLabelStyle.Render("Updated"))
		s.WriteString(fmt.Sprintf("%d\n", st.UpdatedContacts))
		s.WriteString(syncLabelStyle.Render("Cached total"))
		s.WriteString(fmt.Sprintf("%d\n", st.TotalContacts))
		if st.SkippedContacts > 0 {
			s.WriteString(syncLabelStyle.Render("Skipped"))
			s.WriteString(fmt.Sprintf("%d\n", st.SkippedContacts))
		}
	}

	s.WriteString("\n")

	// Recent messages
	if len(m.syncMessages) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		// Show last 5 messages
		start := 0
		if len(m.syncMessages) > 5 {
			start = len(m.syncMessages) - 5
		}
		for i := start; i < len(m.syncMessages); i++ {
			s.WriteString(syncMessageStyle.Render("  " + m.syncMessages[i]))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderSyncHelp())

	return s.String()
}

func (m Model) renderSyncHelp() string {
	help := []string{
		"Enter: Sync now",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.syncing || m.reconciler == nil {
			return m, nil
		}
		// State updates happen here, before the Cmd runs.
		m.syncing = true
		m.addSyncMessage("Starting meeting sync...")
		return m, tea.Batch(m.runSync(), m.spinner.Tick)
	case "esc":
		m.viewMode = ViewList
	}

	return m, nil
}

// runSync runs the reconciler. Merged contacts reach the list through the
// engine subscription.
func (m Model) runSync() tea.Cmd {
	return func() tea.Msg {
		result := m.reconciler.Sync(m.ctx, m.inputs.Token)
		return SyncCompleteMsg{Result: result, Stats: m.reconciler.Stats()}
	}
}

// addSyncMessage adds a message to the sync message log.
func (m *Model) addSyncMessage(msg string) {
	timestamp := time.Now().Format("15:04:05")
	m.syncMessages = append(m.syncMessages, fmt.Sprintf("[%s] %s", timestamp, msg))
}

// handleSyncComplete handles sync completion messages.
func (m *Model) handleSyncComplete(msg SyncCompleteMsg) tea.Cmd {
	m.syncing = false
	if msg.Stats != nil {
		m.lastStats = msg.Stats
	}

	if msg.Result.Success {
		m.addSyncMessage("✓ " + msg.Result.Message)
	} else {
		m.addSyncMessage("✗ " + msg.Result.Message)
	}
	return nil
}
