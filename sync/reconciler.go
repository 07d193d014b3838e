// ABOUTME: Manual sync of recent meeting contacts into the per-user cache
// ABOUTME: Merges new recipients without discarding known contacts, one sync at a time
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/models"
)

// Result messages.
const (
	MsgSyncInProgress = "Sync already in progress"
	MsgNoUserID       = "No user ID available from access token"
	MsgNoMeetings     = "No meetings found in your recent history"
	MsgNoNewContacts  = "Checked your meetings, but no new contacts found"
)

// StatusTracker records sync runs. Tracker errors are logged, never returned.
type StatusTracker interface {
	SyncStarted(runID string) error
	SyncFinished(stats models.SyncStats) error
	ContactSynced(userID string, c models.Contact, added bool) error
}

// ReconcilerConfig tunes a Reconciler. Zero values use the defaults.
type ReconcilerConfig struct {
	Limit    int
	Lookback time.Duration
	Logger   *log.Logger
	Tracker  StatusTracker
	// OnMerged receives the merged meeting contacts after they are cached.
	OnMerged func(userID string, contacts []models.Contact)
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Reconciler runs manual syncs. At most one sync runs at a time; overlapping
// calls are rejected, not queued.
type Reconciler struct {
	source MeetingSource
	store  *cache.Store
	cfg    ReconcilerConfig
	logger *log.Logger

	syncing atomic.Bool

	mu       stdsync.RWMutex
	stats    *models.SyncStats
	lastSync time.Time
}

// NewReconciler creates a Reconciler over the meeting source and cache store.
func NewReconciler(source MeetingSource, store *cache.Store, cfg ReconcilerConfig) *Reconciler {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultSyncLimit
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: loggerOrDefault(cfg.Logger).With("component", "sync"),
	}
}

// Sync fetches recent meetings and merges their recipients into the cached
// meeting contacts for the token's user.
func (r *Reconciler) Sync(ctx context.Context, accessToken string) models.SyncResult {
	if !r.syncing.CompareAndSwap(false, true) {
		r.logger.Info("sync already in progress, skipping request")
		return models.SyncResult{Success: false, Message: MsgSyncInProgress}
	}
	defer r.syncing.Store(false)

	userID, err := UserIDFromToken(accessToken)
	if err != nil {
		r.logger.Error("cannot resolve user", "err", err)
		return models.SyncResult{Success: false, Message: MsgNoUserID}
	}

	now := r.cfg.Now()
	stats := models.SyncStats{RunID: ulid.Make().String(), SyncedAt: now}
	r.track(func(t StatusTracker) error { return t.SyncStarted(stats.RunID) })

	var existing []models.Contact
	if entry := r.store.Read(cache.MeetingContacts, userID); entry != nil {
		existing = entry.Data
	}
	logger := r.logger.With("user", userID, "run", stats.RunID)
	logger.Info("starting sync", "cached", len(existing))

	recent, err := FetchRecentMeetingContacts(ctx, r.source, accessToken, RecentQuery{
		Limit:    r.cfg.Limit,
		Lookback: r.cfg.Lookback,
		Now:      now,
	})
	if err != nil {
		stats.TotalContacts = len(existing)
		return r.fail(logger, stats, err.Error())
	}

	stats.TotalMeetings = recent.TotalMeetings
	stats.MeetingsProcessed = recent.SuccessfulMeetings
	stats.SkippedContacts = recent.SkippedContacts
	stats.Errors = recent.Errors

	if len(recent.Contacts) == 0 && len(recent.Errors) > 0 {
		stats.TotalContacts = len(existing)
		return r.fail(logger, stats, fmt.Sprintf("could not fetch details for any of %d meetings", recent.TotalMeetings))
	}

	merged := MergeContacts(existing, recent.Contacts)
	stats.TotalContacts = len(merged.Contacts)
	stats.NewContacts = len(merged.Added)
	stats.UpdatedContacts = len(merged.Updated)

	r.store.Write(cache.MeetingContacts, userID, merged.Contacts)
	for _, c := range merged.Added {
		r.track(func(t StatusTracker) error { return t.ContactSynced(userID, c, true) })
	}
	for _, c := range merged.Updated {
		r.track(func(t StatusTracker) error { return t.ContactSynced(userID, c, false) })
	}
	if r.cfg.OnMerged != nil {
		r.cfg.OnMerged(userID, merged.Contacts)
	}

	r.finish(stats, now)
	logger.Info("sync complete",
		"total", stats.TotalContacts,
		"added", stats.NewContacts,
		"updated", stats.UpdatedContacts,
		"meetings", fmt.Sprintf("%d/%d", stats.MeetingsProcessed, stats.TotalMeetings),
		"skipped", stats.SkippedContacts,
		"errors", len(stats.Errors),
	)

	switch {
	case recent.TotalMeetings == 0:
		return models.SyncResult{Success: true, Message: MsgNoMeetings}
	case stats.NewContacts > 0:
		return models.SyncResult{Success: true, Message: fmt.Sprintf("Added %d new contacts from your recent meetings", stats.NewContacts)}
	default:
		return models.SyncResult{Success: true, Message: MsgNoNewContacts}
	}
}

func (r *Reconciler) fail(logger *log.Logger, stats models.SyncStats, msg string) models.SyncResult {
	stats.Error = msg
	logger.Error("sync failed", "err", msg)
	r.mu.Lock()
	r.stats = &stats
	r.mu.Unlock()
	r.track(func(t StatusTracker) error { return t.SyncFinished(stats) })
	return models.SyncResult{Success: false, Message: "Failed to sync: " + msg}
}

func (r *Reconciler) finish(stats models.SyncStats, at time.Time) {
	r.mu.Lock()
	r.stats = &stats
	r.lastSync = at
	r.mu.Unlock()
	r.track(func(t StatusTracker) error { return t.SyncFinished(stats) })
}

func (r *Reconciler) track(fn func(StatusTracker) error) {
	if r.cfg.Tracker == nil {
		return
	}
	if err := fn(r.cfg.Tracker); err != nil {
		r.logger.Warn("failed to record sync status", "err", err)
	}
}

// IsSyncing reports whether a sync is in flight.
func (r *Reconciler) IsSyncing() bool {
	return r.syncing.Load()
}

// Stats returns a copy of the most recent run's statistics, or nil.
func (r *Reconciler) Stats() *models.SyncStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stats == nil {
		return nil
	}
	s := *r.stats
	s.Errors = append([]string(nil), r.stats.Errors...)
	return &s
}

// LastSyncTime returns when the last successful sync finished.
func (r *Reconciler) LastSyncTime() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync, !r.lastSync.IsZero()
}

// MergeResult is the outcome of MergeContacts.
type MergeResult struct {
	Contacts []models.Contact
	Added    []models.Contact
	Updated  []models.Contact
}

// MergeContacts folds candidates into existing, keyed by ContactKey. When ids
// differ a candidate still matches an existing record with the same identity
// key, so records whose ids were built another way are not added twice.
//
// New keys are appended and reported as added. A known key is updated only
// when the existing record lacks an email or phone the candidate has, or the
// candidate's create date is newer. Other matches are left alone.
func MergeContacts(existing, candidates []models.Contact) MergeResult {
	m := NewContactMatcher(ContactKey).MatchAlso(BuildKey)
	for _, c := range existing {
		m.AddContact(c)
	}

	var res MergeResult
	for _, c := range candidates {
		current, found := m.FindMatch(c)
		if !found {
			m.AddContact(c)
			res.Added = append(res.Added, c)
			continue
		}
		if !shouldUpdate(*current, c) {
			continue
		}
		*current = mergeFields(*current, c)
		res.Updated = append(res.Updated, *current)
	}

	res.Contacts = m.Contacts()
	if res.Contacts == nil {
		res.Contacts = []models.Contact{}
	}
	return res
}

func shouldUpdate(existing, candidate models.Contact) bool {
	if existing.Email == "" && candidate.Email != "" {
		return true
	}
	if existing.PhoneValue() == "" && candidate.PhoneValue() != "" {
		return true
	}
	return isNewer(candidate.CreateDate, existing.CreateDate)
}

// isNewer reports whether candidate is a parseable date after existing. A
// missing existing date counts as older.
func isNewer(candidate, existing string) bool {
	ct, ok := models.ParseServiceTime(candidate)
	if !ok {
		return false
	}
	et, ok := models.ParseServiceTime(existing)
	if !ok {
		return true
	}
	return ct.After(et)
}

// mergeFields is a right-biased shallow merge: every field a meeting
// candidate carries replaces the existing value, empty or not. PhoneNumber is
// never set on candidates, so the existing value is kept.
func mergeFields(existing, candidate models.Contact) models.Contact {
	out := existing
	out.ID = candidate.ID
	out.FirstName = candidate.FirstName
	out.LastName = candidate.LastName
	out.Email = candidate.Email
	out.Phone = candidate.Phone
	out.Source = candidate.Source
	out.MeetingID = candidate.MeetingID
	out.CreateDate = candidate.CreateDate
	return out
}
