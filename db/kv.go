// ABOUTME: SQLite backed cache.Storage
// ABOUTME: Each storage key is one row in kv_store
package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lokesh75way/confirmed-add-in/cache"
)

// KVStore is a cache.Storage over the kv_store table.
type KVStore struct {
	db *sql.DB
}

// NewKVStore wraps an open database.
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// GetItem implements cache.Storage.
func (s *KVStore) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// SetItem implements cache.Storage.
func (s *KVStore) SetItem(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// RemoveItem implements cache.Storage.
func (s *KVStore) RemoveItem(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Keys implements cache.KeyLister.
func (s *KVStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv_store ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

var (
	_ cache.Storage   = (*KVStore)(nil)
	_ cache.KeyLister = (*KVStore)(nil)
)
