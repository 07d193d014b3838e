package cache

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokesh75way/confirmed-add-in/models"
)

func newTestStore(t *testing.T, now time.Time) (*Store, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	store := NewStore(storage, log.New(io.Discard))
	store.Now = func() time.Time { return now }
	return store, storage
}

func TestStoreReadMissing(t *testing.T) {
	store, _ := newTestStore(t, time.Now())
	assert.Nil(t, store.Read(MeetingContacts, "u1"))
}

func TestStoreWriteThenRead(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, now)

	contacts := []models.Contact{{FirstName: "Ann", LastName: "Lee", Email: "a@x.com"}}
	store.Write(MeetingContacts, "u1", contacts)

	entry := store.Read(MeetingContacts, "u1")
	require.NotNil(t, entry)
	assert.Equal(t, now.UnixMilli(), entry.Timestamp)
	assert.Equal(t, contacts, entry.Data)
}

func TestStoreWritePreservesOtherUsers(t *testing.T) {
	store, _ := newTestStore(t, time.Now())

	store.Write(CRMContacts, "u1", []models.Contact{{FirstName: "A", LastName: "B"}})
	store.Write(CRMContacts, "u2", []models.Contact{{FirstName: "C", LastName: "D"}})
	store.Write(CRMContacts, "u1", []models.Contact{{FirstName: "E", LastName: "F"}})

	assert.Equal(t, []string{"u1", "u2"}, store.Users(CRMContacts))
	assert.Equal(t, "E", store.Read(CRMContacts, "u1").Data[0].FirstName)
	assert.Equal(t, "C", store.Read(CRMContacts, "u2").Data[0].FirstName)
}

func TestStoreWriteEmptyListIsDistinctFromMissing(t *testing.T) {
	store, storage := newTestStore(t, time.Now())

	store.Write(CRMContacts, "u1", nil)

	entry := store.Read(CRMContacts, "u1")
	require.NotNil(t, entry)
	assert.Empty(t, entry.Data)

	raw, ok, err := storage.GetItem(CRMContacts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, `"data":[]`)
}

func TestStoreCorruptBlobReadsAsMissing(t *testing.T) {
	store, storage := newTestStore(t, time.Now())
	require.NoError(t, storage.SetItem(MeetingContacts, "{not json"))

	assert.Nil(t, store.Read(MeetingContacts, "u1"))
	assert.Empty(t, store.Users(MeetingContacts))

	store.Write(MeetingContacts, "u1", []models.Contact{{FirstName: "A", LastName: "B"}})
	assert.NotNil(t, store.Read(MeetingContacts, "u1"))
}

func TestStoreReadsBrowserBlob(t *testing.T) {
	store, storage := newTestStore(t, time.Now())
	blob := map[string]any{
		"u1": map[string]any{
			"timestamp": 1700000000000,
			"data":      []any{map[string]any{"firstName": "Ann", "lastName": "Lee", "phoneNumber": "555"}},
		},
	}
	raw, err := json.Marshal(blob)
	require.NoError(t, err)
	require.NoError(t, storage.SetItem(MeetingContacts, string(raw)))

	entry := store.Read(MeetingContacts, "u1")
	require.NotNil(t, entry)
	assert.Equal(t, "555", entry.Data[0].PhoneValue())
}

func TestStoreIsStale(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, now)

	eightDays := &models.CacheEntry{Timestamp: now.Add(-8 * 24 * time.Hour).UnixMilli()}
	sixDays := &models.CacheEntry{Timestamp: now.Add(-6 * 24 * time.Hour).UnixMilli()}

	assert.True(t, store.IsStale(eightDays))
	assert.False(t, store.IsStale(sixDays))
	assert.True(t, store.IsStale(nil))
	assert.Equal(t, 6*24*time.Hour, store.Age(sixDays))
}

func TestStoreCustomTTL(t *testing.T) {
	now := time.Now()
	store, _ := newTestStore(t, now)
	store.TTL = time.Hour

	assert.True(t, store.IsStale(&models.CacheEntry{Timestamp: now.Add(-2 * time.Hour).UnixMilli()}))
	assert.False(t, store.IsStale(&models.CacheEntry{Timestamp: now.Add(-30 * time.Minute).UnixMilli()}))
}

type failingStorage struct {
	getErr error
	setErr error
}

func (f failingStorage) GetItem(string) (string, bool, error) { return "", false, f.getErr }
func (f failingStorage) SetItem(string, string) error { return f.setErr }
func (f failingStorage) RemoveItem(string) error { return nil }

func TestStoreSwallowsStorageErrors(t *testing.T) {
	store := NewStore(failingStorage{getErr: errors.New("boom"), setErr: errors.New("full")}, log.New(io.Discard))

	assert.Nil(t, store.Read(MeetingContacts, "u1"))
	assert.NotPanics(t, func() {
		store.Write(MeetingContacts, "u1", []models.Contact{{FirstName: "A", LastName: "B"}})
	})
}

func TestStoreWriteSkippedWhenReadFails(t *testing.T) {
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage()}
	store := NewStore(storage, log.New(io.Discard))

	store.Write(MeetingContacts, "other", []models.Contact{{FirstName: "O", LastName: "P"}})

	storage.failNextGet = true
	store.Write(MeetingContacts, "me", []models.Contact{{FirstName: "M", LastName: "N"}})

	other := store.Read(MeetingContacts, "other")
	require.NotNil(t, other, "other user's entry must survive a failed read")
	assert.Equal(t, "O", other.Data[0].FirstName)
	assert.Nil(t, store.Read(MeetingContacts, "me"))

	// The next write goes through once storage reads again.
	store.Write(MeetingContacts, "me", []models.Contact{{FirstName: "M", LastName: "N"}})
	assert.Equal(t, []string{"me", "other"}, store.Users(MeetingContacts))
}

func TestStoreFailedWriteKeepsPreviousEntry(t *testing.T) {
	storage := &flakyStorage{MemoryStorage: NewMemoryStorage()}
	store := NewStore(storage, log.New(io.Discard))

	store.Write(CRMContacts, "u1", []models.Contact{{FirstName: "A", LastName: "B"}})

	storage.failSet = true
	store.Write(CRMContacts, "u1", []models.Contact{{FirstName: "C", LastName: "D"}})

	entry := store.Read(CRMContacts, "u1")
	require.NotNil(t, entry)
	assert.Equal(t, "A", entry.Data[0].FirstName)
}

// flakyStorage fails the next read or every write on demand.
type flakyStorage struct {
	*MemoryStorage
	failNextGet bool
	failSet     bool
}

func (f *flakyStorage) GetItem(key string) (string, bool, error) {
	if f.failNextGet {
		f.failNextGet = false
		return "", false, errors.New("database is locked")
	}
	return f.MemoryStorage.GetItem(key)
}

func (f *flakyStorage) SetItem(key, value string) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryStorage.SetItem(key, value)
}
