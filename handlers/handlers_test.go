// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Runs the real engine and reconciler over an in-memory meeting source
package handlers

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/db"
	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

type stubMeetings struct {
	meetings []models.Meeting
	details  map[string]models.InvitationDetail
}

func (s *stubMeetings) ListMeetings(_ context.Context, _ string, q models.MeetingQuery) (*models.MeetingsPage, error) {
	page := &models.MeetingsPage{TotalRecords: len(s.meetings)}
	if q.PageNumber == 0 {
		page.Meetings = s.meetings
	}
	return page, nil
}

func (s *stubMeetings) GetInvitation(_ context.Context, _ string, id string) (*models.InvitationDetail, error) {
	d := s.details[id]
	return &d, nil
}

func newStubMeetings() *stubMeetings {
	return &stubMeetings{
		meetings: []models.Meeting{
			{ID: "m1", RecipientFirstName: "Ann", RecipientLastName: "Lee", CreateDate: "2024-05-01T10:00:00"},
		},
		details: map[string]models.InvitationDetail{
			"m1": {ID: "m1", RecipientFirstName: "Ann", RecipientLastName: "Lee", RecipientEmail: "ann@acme.com"},
		},
	}
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	logger := log.New(io.Discard)
	store := cache.NewStore(cache.NewMemoryStorage(), logger)
	meetings := newStubMeetings()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	engine := contactsync.NewEngine(nil, meetings, nil, store, contactsync.EngineConfig{Logger: logger})
	t.Cleanup(engine.Close)
	reconciler := contactsync.NewReconciler(meetings, store, contactsync.ReconcilerConfig{
		Logger:   logger,
		Tracker:  db.NewSyncTracker(database, ""),
		OnMerged: engine.ReplaceMeetingContacts,
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "auth0|u1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	return &Deps{
		Engine:     engine,
		Reconciler: reconciler,
		Store:      store,
		Tokens:     oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		DB:         database,
	}
}

func TestListContacts(t *testing.T) {
	h := NewContactHandlers(newTestDeps(t))

	_, out, err := h.ListContacts(context.Background(), nil, ListContactsInput{})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Ann", out.Contacts[0].FirstName)
	assert.Equal(t, "ann@acme.com", out.Contacts[0].Email)
	assert.Equal(t, string(models.SourceMeeting), out.Contacts[0].Source)

	_, out, err = h.ListContacts(context.Background(), nil, ListContactsInput{Query: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)

	_, out, err = h.ListContacts(context.Background(), nil, ListContactsInput{Source: "crm"})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
	assert.NotNil(t, out.Contacts)
}

func TestListContactsLimit(t *testing.T) {
	deps := newTestDeps(t)
	h := NewContactHandlers(deps)

	_, out, err := h.ListContacts(context.Background(), nil, ListContactsInput{Limit: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, out.Count, 1)
	assert.GreaterOrEqual(t, out.Total, out.Count)
}

func TestNotSignedIn(t *testing.T) {
	deps := newTestDeps(t)
	deps.Tokens = nil

	_, _, err := NewContactHandlers(deps).ListContacts(context.Background(), nil, ListContactsInput{})
	assert.ErrorContains(t, err, "not signed in")

	_, _, err = NewContactHandlers(deps).SyncContacts(context.Background(), nil, SyncContactsInput{})
	assert.Error(t, err)

	_, _, err = NewCacheHandlers(deps).CacheStatus(context.Background(), nil, CacheStatusInput{})
	assert.Error(t, err)
}

func TestSyncThenStatusAndHistory(t *testing.T) {
	deps := newTestDeps(t)
	contacts := NewContactHandlers(deps)
	caches := NewCacheHandlers(deps)

	_, res, err := contacts.SyncContacts(context.Background(), nil, SyncContactsInput{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Added 1 new contacts from your recent meetings", res.Message)
	require.NotNil(t, res.Stats)
	assert.Equal(t, 1, res.Stats.NewContacts)

	_, status, err := caches.CacheStatus(context.Background(), nil, CacheStatusInput{})
	require.NoError(t, err)
	require.Len(t, status.Entries, 1)
	assert.Equal(t, cache.MeetingContacts, status.Entries[0].Cache)
	assert.Equal(t, "auth0|u1", status.Entries[0].UserID)
	assert.Equal(t, 1, status.Entries[0].Count)
	assert.False(t, status.Entries[0].Stale)
	assert.NotEmpty(t, status.LastSync)
	assert.False(t, status.Syncing)

	_, history, err := caches.SyncHistory(context.Background(), nil, SyncHistoryInput{})
	require.NoError(t, err)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, "added", history.Entries[0].Action)
	assert.Equal(t, "m1", history.Entries[0].Contact.MeetingID)
}

func TestCacheStatusAllUsers(t *testing.T) {
	deps := newTestDeps(t)
	deps.Store.Write(cache.CRMContacts, "auth0|other", []models.Contact{{FirstName: "X", LastName: "Y"}})

	_, status, err := NewCacheHandlers(deps).CacheStatus(context.Background(), nil, CacheStatusInput{AllUsers: true})
	require.NoError(t, err)
	require.Len(t, status.Entries, 1)
	assert.Equal(t, "auth0|other", status.Entries[0].UserID)
}

func TestSyncHistoryNeedsDB(t *testing.T) {
	deps := newTestDeps(t)
	deps.DB = nil

	_, _, err := NewCacheHandlers(deps).SyncHistory(context.Background(), nil, SyncHistoryInput{})
	assert.ErrorContains(t, err, "sqlite")
}

func TestReadResource(t *testing.T) {
	h := NewResourceHandlers(newTestDeps(t))

	res, err := h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "confirmed://contacts"}})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "ann@acme.com")

	res, err = h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "confirmed://cache/crm"}})
	require.NoError(t, err)
	assert.JSONEq(t, "[]", res.Contents[0].Text)

	_, err = h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://contacts"}})
	assert.Error(t, err)

	_, err = h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "confirmed://nope"}})
	assert.Error(t, err)
}

func TestPrompts(t *testing.T) {
	deps := newTestDeps(t)
	h := NewPromptHandlers(deps)

	res, err := h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "meeting-followups"}})
	require.NoError(t, err)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "sync_contacts")

	_, _, err = NewContactHandlers(deps).SyncContacts(context.Background(), nil, SyncContactsInput{})
	require.NoError(t, err)

	res, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "meeting-followups", Arguments: map[string]string{"limit": "5"}}})
	require.NoError(t, err)
	text = res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Ann Lee <ann@acme.com> (met 2024-05-01)")

	res, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "contact-summary", Arguments: map[string]string{"query": "ann"}}})
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "Source: meeting")

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "contact-summary", Arguments: map[string]string{"query": "nobody"}}})
	assert.Error(t, err)

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "meeting-followups", Arguments: map[string]string{"limit": "x"}}})
	assert.Error(t, err)

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "unknown"}})
	assert.Error(t, err)
}

type stubFlexCals struct {
	got models.FlexCalQuery
}

func (s *stubFlexCals) ListFlexCals(_ context.Context, _ string, q models.FlexCalQuery) (*models.FlexCalPage, error) {
	s.got = q
	return &models.FlexCalPage{
		TotalRecords: 1,
		FlexCals:     models.FlexCalList{{ID: "7", Name: "Office hours", Evergreen: true}},
	}, nil
}

func TestListFlexCals(t *testing.T) {
	deps := newTestDeps(t)
	stub := &stubFlexCals{}
	deps.FlexCals = stub

	_, out, err := NewFlexCalHandlers(deps).ListFlexCals(context.Background(), nil, ListFlexCalsInput{Name: "office", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, models.FlexCalQuery{NameFilter: "office", PageNumber: 2}, stub.got)
	assert.Equal(t, 1, out.TotalRecords)
	require.Len(t, out.FlexCals, 1)
	assert.Equal(t, "Office hours", out.FlexCals[0].Name)
	assert.Equal(t, "https://use.confirmedapp.com/scheduler?flexcalid=7", out.FlexCals[0].Link)

	deps.FlexCals = nil
	_, _, err = NewFlexCalHandlers(deps).ListFlexCals(context.Background(), nil, ListFlexCalsInput{})
	assert.Error(t, err)
}
