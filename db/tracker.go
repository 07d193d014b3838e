// ABOUTME: Persists manual sync progress to SQLite
// ABOUTME: Implements the reconciler's status tracker over sync_state and sync_log
package db

import (
	"database/sql"
	"sync"
	"time"

	contactsync "github.com/lokesh75way/confirmed-add-in/sync"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// SyncTracker records reconciler runs under one sync_state service.
type SyncTracker struct {
	db      *sql.DB
	service string
	now     func() time.Time

	mu    sync.Mutex
	runID string
}

// NewSyncTracker creates a tracker for service. An empty service uses
// MeetingSyncService.
func NewSyncTracker(db *sql.DB, service string) *SyncTracker {
	if service == "" {
		service = MeetingSyncService
	}
	return &SyncTracker{db: db, service: service, now: time.Now}
}

func (t *SyncTracker) SyncStarted(runID string) error {
	t.mu.Lock()
	t.runID = runID
	t.mu.Unlock()
	return UpdateSyncStatus(t.db, t.service, models.SyncStatusSyncing, runID, nil)
}

func (t *SyncTracker) SyncFinished(stats models.SyncStats) error {
	return RecordSyncRun(t.db, t.service, stats)
}

func (t *SyncTracker) ContactSynced(userID string, c models.Contact, added bool) error {
	t.mu.Lock()
	runID := t.runID
	t.mu.Unlock()

	action := "updated"
	if added {
		action = "added"
	}
	return UpsertSyncLog(t.db, SyncLogEntry{
		UserID:     userID,
		ContactKey: contactsync.ContactKey(c),
		Source:     string(c.Source),
		Action:     action,
		MeetingID:  c.MeetingID,
		RunID:      runID,
		SyncedAt:   t.now(),
		Contact:    c,
	})
}

var _ contactsync.StatusTracker = (*SyncTracker)(nil)
