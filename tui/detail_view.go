package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("CONTACT"))
	s.WriteString("\n\n")

	if m.selected == nil {
		s.WriteString("No contact selected")
	} else {
		c := *m.selected
		s.WriteString(m.renderField("Name", c.DisplayName()))
		s.WriteString(m.renderField("Email", c.Email))
		s.WriteString(m.renderField("Phone", c.PhoneValue()))
		s.WriteString(m.renderField("Source", string(c.Source)))
		s.WriteString(m.renderField("Key", contactsync.BuildKey(c)))
		if c.MeetingID != "" {
			s.WriteString(m.renderField("Meeting", c.MeetingID))
		}
		if t, ok := c.CreatedAt(); ok {
			s.WriteString(m.renderField("Met", fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02"), formatTimeSince(t))))
		}
	}

	s.WriteString("\n\n")

	// Help
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewList
		m.selected = nil
	}

	return m, nil
}
