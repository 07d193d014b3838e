// ABOUTME: Tests for the contacts browser model
// ABOUTME: Drives Update directly with key and snapshot messages
package tui

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

type stubMeetings struct{}

func (stubMeetings) ListMeetings(_ context.Context, _ string, q models.MeetingQuery) (*models.MeetingsPage, error) {
	page := &models.MeetingsPage{TotalRecords: 1}
	if q.PageNumber == 0 {
		page.Meetings = []models.Meeting{{ID: "m1", RecipientFirstName: "Ann", RecipientLastName: "Lee", CreateDate: "2024-05-01T10:00:00"}}
	}
	return page, nil
}

func (stubMeetings) GetInvitation(_ context.Context, _ string, id string) (*models.InvitationDetail, error) {
	return &models.InvitationDetail{ID: id, RecipientFirstName: "Ann", RecipientLastName: "Lee", RecipientEmail: "ann@lee.io"}, nil
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	logger := log.New(io.Discard)
	store := cache.NewStore(cache.NewMemoryStorage(), logger)
	engine := contactsync.NewEngine(nil, stubMeetings{}, nil, store, contactsync.EngineConfig{Logger: logger})
	t.Cleanup(engine.Close)
	reconciler := contactsync.NewReconciler(stubMeetings{}, store, contactsync.ReconcilerConfig{
		Logger:   logger,
		OnMerged: engine.ReplaceMeetingContacts,
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "auth0|u1"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return NewModel(context.Background(), engine, reconciler, contactsync.Inputs{Token: token})
}

func sampleSnapshot() contactsync.Snapshot {
	return contactsync.Snapshot{Contacts: []models.Contact{
		{FirstName: "Jane", LastName: "Doe", Email: "jane@acme.com", Source: models.SourceExternal},
		{FirstName: "Ann", LastName: "Lee", Email: "ann@lee.io", Source: models.SourceMeeting, MeetingID: "m1"},
		{FirstName: "Bo", LastName: "Ray", Email: "bo@crm.io", Source: models.SourceSalesforceLead},
	}}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestSnapshotAndTabs(t *testing.T) {
	m := newTestModel(t)
	if !strings.Contains(m.View(), "Loading contacts") {
		t.Error("Should show loading before the first snapshot")
	}

	m = update(t, m, snapshotMsg{snap: sampleSnapshot()})
	if len(m.contacts) != 3 {
		t.Fatalf("Expected 3 contacts, got %d", len(m.contacts))
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.tab != TabDirectory || len(m.contacts) != 1 || m.contacts[0].FirstName != "Jane" {
		t.Errorf("Directory tab should show only Jane, got %v", m.contacts)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.tab != TabCRM || len(m.contacts) != 1 || m.contacts[0].FirstName != "Bo" {
		t.Errorf("Salesforce tab should show only Bo, got %v", m.contacts)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.tab != TabAll {
		t.Errorf("Tabs should wrap around, got %d", m.tab)
	}
}

func TestSearch(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, snapshotMsg{snap: sampleSnapshot()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.searching {
		t.Fatal("Slash should start searching")
	}
	for _, r := range "acme" {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(m.contacts) != 1 || m.contacts[0].FirstName != "Jane" {
		t.Errorf("Search should narrow to Jane, got %v", m.contacts)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searching || len(m.contacts) != 3 {
		t.Error("Escape should clear the search")
	}
}

func TestNavigationAndDetail(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, snapshotMsg{snap: sampleSnapshot()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedRow != 2 {
		t.Errorf("Cursor should stop at the last row, got %d", m.selectedRow)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selectedRow != 1 {
		t.Errorf("Expected selectedRow=1, got %d", m.selectedRow)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.viewMode != ViewDetail || m.selected == nil {
		t.Fatal("Enter should open the detail view")
	}
	view := m.View()
	if !strings.Contains(view, "ann@lee.io") || !strings.Contains(view, "m1") {
		t.Errorf("Detail view should show the contact, got %q", view)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.viewMode != ViewList {
		t.Error("Escape should return to the list")
	}
}

func TestSyncFlow(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if m.viewMode != ViewSync {
		t.Fatal("s should open the sync view")
	}

	updated, cmd := m.handleSyncKeys(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if !m.syncing || cmd == nil {
		t.Fatal("Enter should start a sync")
	}

	msg := m.runSync()()
	done, ok := msg.(SyncCompleteMsg)
	if !ok {
		t.Fatalf("Expected SyncCompleteMsg, got %T", msg)
	}
	if !done.Result.Success || done.Stats == nil || done.Stats.NewContacts != 1 {
		t.Errorf("Unexpected sync result: %+v %+v", done.Result, done.Stats)
	}

	m = update(t, m, done)
	if m.syncing {
		t.Error("Sync should not be in progress after completion")
	}
	view := m.View()
	if !strings.Contains(view, "Added 1 new contacts") || !strings.Contains(view, "1 of 1 processed") {
		t.Errorf("Sync view should show the result, got %q", view)
	}
}

func TestSyncCompleteWithError(t *testing.T) {
	m := newTestModel(t)
	m.syncing = true

	_ = m.handleSyncComplete(SyncCompleteMsg{
		Result: models.SyncResult{Success: false, Message: "Failed to sync: boom"},
		Stats:  &models.SyncStats{Error: "boom"},
	})

	if m.syncing {
		t.Error("Sync should not be in progress after error")
	}
	if len(m.syncMessages) != 1 || !strings.Contains(m.syncMessages[0], "✗ Failed to sync: boom") {
		t.Errorf("Should have logged the failure, got %v", m.syncMessages)
	}
	m.viewMode = ViewSync
	if !strings.Contains(m.View(), "Error: boom") {
		t.Error("Sync view should show the error")
	}
}

func TestPublishKeepsNewest(t *testing.T) {
	m := newTestModel(t)

	m.publish(contactsync.Snapshot{Contacts: []models.Contact{{FirstName: "Old"}}})
	m.publish(contactsync.Snapshot{Contacts: []models.Contact{{FirstName: "New"}}})

	msg := m.waitForSnapshot()().(snapshotMsg)
	if msg.snap.Contacts[0].FirstName != "New" {
		t.Errorf("Expected the newest snapshot, got %v", msg.snap.Contacts)
	}
}

func TestLoadCommand(t *testing.T) {
	m := newTestModel(t)

	msg := m.load()().(snapshotMsg)
	if len(msg.snap.Contacts) != 1 || msg.snap.Contacts[0].Email != "ann@lee.io" {
		t.Errorf("Load should aggregate meeting contacts, got %v", msg.snap.Contacts)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"just now", 30 * time.Second, "just now"},
		{"one minute", time.Minute, "1 minute ago"},
		{"minutes ago", 5 * time.Minute, "5 minutes ago"},
		{"hours ago", 2 * time.Hour, "2 hours ago"},
		{"days ago", 3 * 24 * time.Hour, "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
