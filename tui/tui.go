// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive browser over the live contacts aggregate with a sync screen
package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewSync
)

// SourceTab filters the list by contact origin.
type SourceTab int

const (
	TabAll SourceTab = iota
	TabDirectory
	TabMeetings
	TabCRM
)

var tabNames = []string{"All", "Directory", "Meetings", "Salesforce"}

// snapshotMsg carries an engine snapshot into the update loop.
type snapshotMsg struct {
	snap contactsync.Snapshot
}

// SyncCompleteMsg is sent when a manual sync finishes.
type SyncCompleteMsg struct {
	Result models.SyncResult
	Stats  *models.SyncStats
}

// Model is the main bubbletea model
type Model struct {
	ctx        context.Context
	engine     *contactsync.Engine
	reconciler *contactsync.Reconciler
	inputs     contactsync.Inputs
	updates    chan contactsync.Snapshot

	viewMode ViewMode
	tab      SourceTab

	snap     contactsync.Snapshot
	loaded   bool
	contacts []models.Contact

	// List view state
	selectedRow int
	search      textinput.Model
	searching   bool

	// Detail view state
	selected *models.Contact

	// Sync view state
	syncing      bool
	syncMessages []string
	lastStats    *models.SyncStats

	spinner spinner.Model
	width   int
	height  int
}

// NewModel creates a model over a running engine. Snapshots published by
// the engine, including background refreshes and sync merges, reach the
// model through a subscription.
func NewModel(ctx context.Context, engine *contactsync.Engine, reconciler *contactsync.Reconciler, in contactsync.Inputs) Model {
	search := textinput.New()
	search.Placeholder = "name or email"
	search.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:        ctx,
		engine:     engine,
		reconciler: reconciler,
		inputs:     in,
		updates:    make(chan contactsync.Snapshot, 1),
		viewMode:   ViewList,
		tab:        TabAll,
		search:     search,
		spinner:    sp,
		width:      80,
		height:     24,
	}
}

// Run starts the full-screen program and blocks until it exits.
func Run(ctx context.Context, engine *contactsync.Engine, reconciler *contactsync.Reconciler, in contactsync.Inputs) error {
	m := NewModel(ctx, engine, reconciler, in)
	unsubscribe := engine.Subscribe(m.publish)
	defer unsubscribe()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// publish hands the newest snapshot to the update loop, replacing one that
// has not been consumed yet.
func (m Model) publish(s contactsync.Snapshot) {
	for {
		select {
		case m.updates <- s:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForSnapshot(), m.spinner.Tick)
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: m.engine.Load(m.ctx, m.inputs)}
	}
}

func (m Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.updates:
			return snapshotMsg{snap: s}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, m.waitForSnapshot()
	case SyncCompleteMsg:
		return m, m.handleSyncComplete(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applySnapshot(s contactsync.Snapshot) {
	m.snap = s
	m.loaded = true
	m.refilter()
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewSync:
		return m.renderSyncView()
	}
	return m.renderListView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewSync:
		return m.handleSyncKeys(msg)
	}

	return m, nil
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(t time.Time) string {
	return formatDuration(time.Since(t))
}

func formatDuration(duration time.Duration) string {
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return plural(int(duration.Minutes()), "minute")
	case duration < 24*time.Hour:
		return plural(int(duration.Hours()), "hour")
	default:
		return plural(int(duration.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return strconv.Itoa(n) + " " + unit + "s ago"
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
