// ABOUTME: Per-user contacts cache with a seven day freshness window
// ABOUTME: Stores one JSON blob per cache name keyed by user id, tolerating corrupt data
package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// Cache names. Existing blobs written by the task pane use these keys.
const (
	MeetingContacts = "confirmed-meeting-contacts"
	CRMContacts     = "salesforce-contacts"
)

// DefaultTTL is the age after which an entry is stale.
const DefaultTTL = 7 * 24 * time.Hour

// Store reads and writes per-user cache entries over a Storage.
type Store struct {
	storage Storage
	logger  *log.Logger

	// TTL is the staleness threshold. Zero means DefaultTTL.
	TTL time.Duration
	// Now is the clock used for timestamps and staleness. Nil means time.Now.
	Now func() time.Time

	// serializes read-modify-write of whole blobs within this process
	mu sync.Mutex
}

// NewStore creates a Store. A nil logger uses log.Default().
func NewStore(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		storage: storage,
		logger:  logger.With("component", "cache"),
	}
}

// Storage returns the underlying storage.
func (s *Store) Storage() Storage {
	return s.storage
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

// Read returns the entry for userID in the named cache, or nil when the blob
// is absent, unreadable, or has no entry for the user.
func (s *Store) Read(name, userID string) *models.CacheEntry {
	blob, _ := s.readBlob(name)
	entry, ok := blob[userID]
	if !ok {
		return nil
	}
	return &entry
}

// Write replaces the entry for userID with contacts stamped at now. Other
// users' entries are preserved. Failures are logged and swallowed. When the
// storage cannot be read the write is skipped, since rewriting the blob would
// drop every other user's entry.
func (s *Store) Write(name, userID string, contacts []models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.readBlob(name)
	if err != nil {
		s.logger.Error("skipping cache write", "cache", name, "user", userID, "err", err)
		return
	}
	if blob == nil {
		blob = make(map[string]models.CacheEntry)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	blob[userID] = models.CacheEntry{
		Timestamp: s.now().UnixMilli(),
		Data:      contacts,
	}

	data, err := json.Marshal(blob)
	if err != nil {
		s.logger.Error("failed to encode cache", "cache", name, "user", userID, "err", err)
		return
	}
	if err := s.storage.SetItem(name, string(data)); err != nil {
		s.logger.Error("failed to write cache", "cache", name, "user", userID, "err", err)
		return
	}
	s.logger.Debug("cache written", "cache", name, "user", userID, "count", len(contacts))
}

// IsStale reports whether entry is older than the TTL. A nil entry is stale.
func (s *Store) IsStale(entry *models.CacheEntry) bool {
	if entry == nil {
		return true
	}
	return s.Age(entry) > s.ttl()
}

// Age returns how long ago entry was written.
func (s *Store) Age(entry *models.CacheEntry) time.Duration {
	if entry == nil {
		return 0
	}
	return s.now().Sub(entry.Time())
}

// Users returns the user ids that have an entry in the named cache, sorted.
func (s *Store) Users(name string) []string {
	blob, _ := s.readBlob(name)
	users := make([]string, 0, len(blob))
	for u := range blob {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// readBlob returns the decoded blob. Absent and corrupt blobs are nil with no
// error; only a storage failure returns an error.
func (s *Store) readBlob(name string) (map[string]models.CacheEntry, error) {
	raw, ok, err := s.storage.GetItem(name)
	if err != nil {
		s.logger.Warn("failed to read cache", "cache", name, "err", err)
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var blob map[string]models.CacheEntry
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		s.logger.Warn("ignoring corrupt cache", "cache", name, "err", err)
		return nil, nil
	}
	return blob, nil
}
