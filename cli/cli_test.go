// ABOUTME: Tests for the CLI commands against a fake Confirmed service
// ABOUTME: Uses a temporary SQLite database and captures command output
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/config"
	"github.com/lokesh75way/confirmed-add-in/models"
)

func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/api/users/getExternalContacts", func(w http.ResponseWriter, r *http.Request) {
		write(w, []models.ExternalContact{
			{FirstName: "Jane", LastName: "Doe", Email: models.EmailList{"jane@acme.com"}, PhoneNumber: "555"},
		})
	})
	mux.HandleFunc("/api/invitations/meetings", func(w http.ResponseWriter, r *http.Request) {
		write(w, models.MeetingsPage{
			Meetings: []models.Meeting{
				{ID: "m1", Subject: "Intro", RecipientFirstName: "Ann", RecipientLastName: "Lee", CreateDate: "2024-05-01T10:00:00", Status: 2},
			},
			TotalRecords: 1,
		})
	})
	mux.HandleFunc("/api/invitations/m1", func(w http.ResponseWriter, r *http.Request) {
		write(w, models.InvitationDetail{ID: "m1", RecipientFirstName: "Ann", RecipientLastName: "Lee", RecipientEmail: "ann@lee.io"})
	})
	mux.HandleFunc("/api/invitations/sendReminder/m1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/lazycalendar/summary", func(w http.ResponseWriter, r *http.Request) {
		page := models.FlexCalPage{TotalRecords: 2, FlexCals: models.FlexCalList{
			{ID: "41", Name: "Intro call", Evergreen: true},
			{ID: "42", Name: "Demo week", StartDate: "2024-05-06T12:00:00", EndDate: "2024-05-10T12:00:00"},
		}}
		if r.URL.Query().Get("nameFilter") == "nothing" {
			page = models.FlexCalPage{}
		}
		write(w, page)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		write(w, models.UserInfo{Subject: "auth0|u1", Nickname: "annie"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	srv := fakeService(t)

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.UserInfoURL = srv.URL + "/userinfo"
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")

	app, err := NewApp(context.Background(), cfg, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	out := &bytes.Buffer{}
	app.Out = out
	return app, out
}

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "auth0|u1", "nickname": "ann"}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func TestLoginStoresToken(t *testing.T) {
	app, out := newTestApp(t)
	token := testToken(t, time.Now().Add(time.Hour))

	require.NoError(t, app.login(context.Background(), token, true))
	assert.Contains(t, out.String(), "Signed in as auth0|u1")
	assert.Contains(t, out.String(), "annie")

	got, err := app.Token()
	require.NoError(t, err)
	assert.Equal(t, token, got)

	_, ok, err := app.Storage.GetItem(cache.TokenExpiresAtKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginRejectsBadTokens(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Error(t, app.login(context.Background(), "", false))
	assert.Error(t, app.login(context.Background(), "not-a-jwt", false))
	assert.ErrorContains(t, app.login(context.Background(), testToken(t, time.Now().Add(-time.Hour)), false), "expired")

	_, err := app.Token()
	assert.Error(t, err)
}

func TestLogoutKeepsCaches(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, app.login(context.Background(), testToken(t, time.Time{}), false))
	app.Store.Write(cache.MeetingContacts, "auth0|u1", []models.Contact{{FirstName: "A", LastName: "B"}})

	require.NoError(t, LogoutCommand(app, nil))
	assert.Contains(t, out.String(), "Signed out")

	_, err := app.Token()
	assert.Error(t, err)
	assert.NotNil(t, app.Store.Read(cache.MeetingContacts, "auth0|u1"))
}

func TestContactsSyncThenList(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, app.login(context.Background(), testToken(t, time.Time{}), false))
	out.Reset()

	require.NoError(t, ContactsSyncCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "Added 1 new contacts from your recent meetings")
	assert.Contains(t, out.String(), "Meetings: 1 of 1 processed")
	out.Reset()

	require.NoError(t, ContactsListCommand(context.Background(), app, nil))
	text := out.String()
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Ann Lee")
	assert.Contains(t, text, "Showing 2 of 2 contacts")
	out.Reset()

	require.NoError(t, ContactsListCommand(context.Background(), app, []string{"--query", "lee.io", "--json"}))
	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(out.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, models.SourceMeeting, contacts[0].Source)
	out.Reset()

	require.NoError(t, ContactsListCommand(context.Background(), app, []string{"--crm"}))
	assert.Contains(t, out.String(), "No contacts found")
}

func TestContactsListRefreshesStaleCache(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, app.login(context.Background(), testToken(t, time.Time{}), false))

	app.Store.Now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	app.Store.Write(cache.MeetingContacts, "auth0|u1", []models.Contact{
		{ID: "old|person|old@x.io|", FirstName: "Old", LastName: "Person", Email: "old@x.io", Source: models.SourceMeeting},
	})
	app.Store.Now = nil
	require.True(t, app.Store.IsStale(app.Store.Read(cache.MeetingContacts, "auth0|u1")))
	out.Reset()

	require.NoError(t, ContactsListCommand(context.Background(), app, nil))
	text := out.String()
	assert.Contains(t, text, "Old Person", "stale contacts are printed first")
	assert.Contains(t, text, "Refreshing stale caches")
	assert.Contains(t, text, "Caches refreshed")

	// The refresh has landed by the time the command returns.
	entry := app.Store.Read(cache.MeetingContacts, "auth0|u1")
	require.NotNil(t, entry)
	assert.False(t, app.Store.IsStale(entry))
	require.Len(t, entry.Data, 1)
	assert.Equal(t, "ann@lee.io", entry.Data[0].Email)
}

func TestCommandsNeedLogin(t *testing.T) {
	app, _ := newTestApp(t)

	assert.ErrorContains(t, ContactsListCommand(context.Background(), app, nil), "not signed in")
	assert.ErrorContains(t, ContactsSyncCommand(context.Background(), app, nil), "not signed in")
	assert.ErrorContains(t, MeetingsListCommand(context.Background(), app, nil), "not signed in")
	assert.ErrorContains(t, FlexCalsListCommand(context.Background(), app, nil), "not signed in")
}

func TestCacheStatusAndHistory(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, app.login(context.Background(), testToken(t, time.Time{}), false))

	out.Reset()
	require.NoError(t, CacheStatusCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "No cached contacts")

	require.NoError(t, ContactsSyncCommand(context.Background(), app, nil))
	out.Reset()

	require.NoError(t, CacheStatusCommand(context.Background(), app, nil))
	text := out.String()
	assert.Contains(t, text, cache.MeetingContacts)
	assert.Contains(t, text, "Meeting sync: idle")
	assert.Contains(t, text, "Last run: 1 new, 0 updated, 1 total")
	out.Reset()

	require.NoError(t, SyncHistoryCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "added")
	assert.Contains(t, out.String(), "ann@lee.io")
}

func TestMeetingsList(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, app.login(context.Background(), testToken(t, time.Time{}), false))
	out.Reset()

	require.NoError(t, MeetingsListCommand(context.Background(), app, []string{"--days", "7"}))
	text := out.String()
	assert.Contains(t, text, "Intro")
	assert.Contains(t, text, "Confirmed")
	assert.Contains(t, text, "Page 0, 1 meetings in total")
}

func TestMeetingActions(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, app.login(context.Background(), testToken(t, time.Time{}), false))
	out.Reset()

	require.NoError(t, MeetingsRemindCommand(context.Background(), app, []string{"m1"}))
	assert.Contains(t, out.String(), "Reminder sent for meeting m1")

	assert.ErrorContains(t, MeetingsWithdrawCommand(context.Background(), app, []string{"m1"}), "--yes")
	require.NoError(t, MeetingsWithdrawCommand(context.Background(), app, []string{"--yes", "m1"}))
	assert.Contains(t, out.String(), "Withdrew meeting m1")

	assert.Error(t, MeetingsRemindCommand(context.Background(), app, nil))
	assert.Error(t, MeetingsRemindCommand(context.Background(), app, []string{"missing"}))
}

func TestFlexCalsList(t *testing.T) {
	app, out := newTestApp(t)
	require.NoError(t, app.login(context.Background(), testToken(t, time.Time{}), false))
	out.Reset()

	require.NoError(t, FlexCalsListCommand(context.Background(), app, nil))
	text := out.String()
	assert.Contains(t, text, "Intro call")
	assert.Contains(t, text, "evergreen")
	assert.Contains(t, text, "2024-05-06 - 2024-05-10")
	assert.Contains(t, text, "https://use.confirmedapp.com/scheduler?flexcalid=42")
	assert.Contains(t, text, "Page 0, 2 flexcals in total")
	out.Reset()

	require.NoError(t, FlexCalsListCommand(context.Background(), app, []string{"--name", "nothing"}))
	assert.Contains(t, out.String(), "No flexcals found")
}

func TestMCPServerBuilds(t *testing.T) {
	app, _ := newTestApp(t)
	assert.NotNil(t, NewMCPServer(app, "test"))
}

func TestFilterBySource(t *testing.T) {
	contacts := []models.Contact{
		{FirstName: "A", Source: models.SourceExternal},
		{FirstName: "B", Source: models.SourceSalesforceLead},
		{FirstName: "C", Source: models.SourceMeeting},
	}

	assert.Len(t, filterBySource(contacts, "", false), 3)
	assert.Len(t, filterBySource(contacts, "", true), 1)
	assert.Equal(t, "C", filterBySource(contacts, "meeting", false)[0].FirstName)
	assert.Empty(t, filterBySource(contacts, "meeting", true))
}

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("  tok123 \n"))
	require.NoError(t, err)
	assert.Equal(t, "tok123", got)

	got, err = readLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}
