// ABOUTME: Database schema for the local storage backend
// ABOUTME: Key/value items plus sync status and per-contact sync history
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_state (
	service TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	last_run_id TEXT,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	stats TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_log (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	contact_key TEXT NOT NULL,
	source TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('added', 'updated')),
	meeting_id TEXT,
	run_id TEXT,
	synced_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	metadata TEXT,
	UNIQUE(user_id, contact_key)
);

CREATE INDEX IF NOT EXISTS idx_sync_log_user ON sync_log(user_id, synced_at DESC);
`

// InitSchema creates any missing tables. It is safe to run on every open.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
