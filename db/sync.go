// ABOUTME: Database operations for sync_state and sync_log tables
// ABOUTME: Records manual sync runs and which meeting contacts each run added or updated
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// MeetingSyncService is the sync_state row for the manual meeting sync.
const MeetingSyncService = "meeting-sync"

const syncStateColumns = `service, last_sync_time, last_run_id, status, error_message, stats, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncState(row rowScanner) (*models.SyncState, error) {
	var state models.SyncState
	var lastSyncTime sql.NullTime
	var lastRunID, status, errorMessage, stats sql.NullString

	if err := row.Scan(
		&state.Service,
		&lastSyncTime,
		&lastRunID,
		&status,
		&errorMessage,
		&stats,
		&state.CreatedAt,
		&state.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	state.LastRunID = lastRunID.String
	state.Status = status.String
	state.ErrorMessage = errorMessage.String
	if stats.Valid && stats.String != "" {
		var s models.SyncStats
		if err := json.Unmarshal([]byte(stats.String), &s); err == nil {
			state.LastStats = &s
		}
	}
	return &state, nil
}

// GetSyncState retrieves the sync state for a service, or nil if it never ran.
func GetSyncState(db *sql.DB, service string) (*models.SyncState, error) {
	row := db.QueryRow(`SELECT `+syncStateColumns+` FROM sync_state WHERE service = ?`, service)
	state, err := scanSyncState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return state, nil
}

// GetAllSyncStates retrieves the sync state for all services.
func GetAllSyncStates(db *sql.DB) ([]models.SyncState, error) {
	rows, err := db.Query(`SELECT ` + syncStateColumns + ` FROM sync_state ORDER BY service`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []models.SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync states: %w", err)
	}
	return states, nil
}

// UpdateSyncStatus sets the status of a service, creating the row if needed.
func UpdateSyncStatus(db *sql.DB, service, status, runID string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (service, status, last_run_id, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			status = excluded.status,
			last_run_id = excluded.last_run_id,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, service, status, runID, errorMsgVal)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// RecordSyncRun stores the outcome of a finished run. A run with an error
// leaves last_sync_time untouched.
func RecordSyncRun(db *sql.DB, service string, stats models.SyncStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	status := models.SyncStatusIdle
	var errorMsg sql.NullString
	var syncedAt sql.NullTime
	if stats.Error != "" {
		status = models.SyncStatusError
		errorMsg = sql.NullString{String: stats.Error, Valid: true}
	} else {
		syncedAt = sql.NullTime{Time: stats.SyncedAt.UTC(), Valid: true}
	}

	_, err = db.Exec(`
		INSERT INTO sync_state (service, last_sync_time, last_run_id, status, error_message, stats, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = COALESCE(excluded.last_sync_time, sync_state.last_sync_time),
			last_run_id = excluded.last_run_id,
			status = excluded.status,
			error_message = excluded.error_message,
			stats = excluded.stats,
			updated_at = CURRENT_TIMESTAMP
	`, service, syncedAt, stats.RunID, status, errorMsg, string(data))
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// SyncLogEntry is one contact a sync added or updated.
type SyncLogEntry struct {
	ID         string
	UserID     string
	ContactKey string
	Source     string
	Action     string
	MeetingID  string
	RunID      string
	SyncedAt   time.Time
	Contact    models.Contact
}

// UpsertSyncLog records that a run touched a contact. A later run replaces
// the earlier entry for the same user and contact.
func UpsertSyncLog(db *sql.DB, entry SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now()
	}
	metadata, err := json.Marshal(entry.Contact)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO sync_log (id, user_id, contact_key, source, action, meeting_id, run_id, synced_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, contact_key) DO UPDATE SET
			source = excluded.source,
			action = excluded.action,
			meeting_id = excluded.meeting_id,
			run_id = excluded.run_id,
			synced_at = excluded.synced_at,
			metadata = excluded.metadata
	`, entry.ID, entry.UserID, entry.ContactKey, entry.Source, entry.Action, entry.MeetingID, entry.RunID, entry.SyncedAt.UTC(), string(metadata))
	if err != nil {
		return fmt.Errorf("failed to write sync log: %w", err)
	}
	return nil
}

// CheckSyncLogExists reports whether a contact was ever synced for a user.
func CheckSyncLogExists(db *sql.DB, userID, contactKey string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sync_log
		WHERE user_id = ? AND contact_key = ?
	`, userID, contactKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check sync log: %w", err)
	}
	return count > 0, nil
}

// ListSyncLog returns a user's most recently synced contacts first.
func ListSyncLog(db *sql.DB, userID string, limit int) ([]SyncLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, user_id, contact_key, source, action, meeting_id, run_id, synced_at, metadata
		FROM sync_log
		WHERE user_id = ?
		ORDER BY synced_at DESC, contact_key
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []SyncLogEntry
	for rows.Next() {
		var e SyncLogEntry
		var meetingID, runID, metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.ContactKey, &e.Source, &e.Action, &meetingID, &runID, &e.SyncedAt, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		e.MeetingID = meetingID.String
		e.RunID = runID.String
		if metadata.Valid {
			_ = json.Unmarshal([]byte(metadata.String), &e.Contact)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
