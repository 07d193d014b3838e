package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

func (m Model) renderListView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("CONFIRMED CONTACTS"))
	s.WriteString("\n\n")

	// Tabs
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.searching || m.search.Value() != "" {
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	}

	// Table
	s.WriteString(m.renderContactsTable())
	s.WriteString("\n")
	s.WriteString(m.renderStatusLine())
	s.WriteString("\n")

	// Help
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string

	for i, tab := range tabNames {
		if SourceTab(i) == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderContactsTable() string {
	columns := []table.Column{
		{Title: "Name", Width: 28},
		{Title: "Email", Width: 32},
		{Title: "Phone", Width: 16},
		{Title: "Source", Width: 18},
	}

	var rows []table.Row
	for _, c := range m.contacts {
		rows = append(rows, table.Row{
			c.DisplayName(),
			c.Email,
			c.PhoneValue(),
			string(c.Source),
		})
	}

	height := m.height - 12
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	// Set selected row
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderStatusLine() string {
	switch {
	case !m.loaded || m.snap.Loading:
		return statusStyle.Render(m.spinner.View() + " Loading contacts...")
	case m.snap.IsRefreshing:
		return statusStyle.Render(fmt.Sprintf("%s %d contacts • refreshing stale caches", m.spinner.View(), len(m.contacts)))
	case m.snap.Err != nil:
		return errorStyle.Render(fmt.Sprintf("%d contacts • %v", len(m.contacts), m.snap.Err))
	default:
		return statusStyle.Render(fmt.Sprintf("%d contacts", len(m.contacts)))
	}
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch source",
		"Enter: View details",
		"/: Search",
		"s: Sync meetings",
		"r: Reload",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.contacts)-1 {
			m.selectedRow++
		}
	case "tab":
		m.tab = (m.tab + 1) % SourceTab(len(tabNames))
		m.refilter()
	case "enter":
		if m.selectedRow < len(m.contacts) {
			c := m.contacts[m.selectedRow]
			m.selected = &c
			m.viewMode = ViewDetail
		}
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "s":
		m.viewMode = ViewSync
	case "r":
		return m, m.load()
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.refilter()
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refilter()
	return m, cmd
}

// refilter recomputes the visible rows from the snapshot, the source tab and
// the search query, keeping the cursor in range.
func (m *Model) refilter() {
	contacts := contactsync.FilterContacts(m.snap.Contacts, m.search.Value())
	visible := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		if inTab(c, m.tab) {
			visible = append(visible, c)
		}
	}
	m.contacts = visible
	if m.selectedRow >= len(visible) {
		m.selectedRow = max(len(visible)-1, 0)
	}
}

func inTab(c models.Contact, tab SourceTab) bool {
	switch tab {
	case TabDirectory:
		return c.Source == models.SourceExternal
	case TabMeetings:
		return c.Source == models.SourceMeeting
	case TabCRM:
		return c.Source.IsCRM()
	default:
		return true
	}
}
