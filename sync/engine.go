// ABOUTME: Aggregation engine driving the three contact sources
// ABOUTME: Serves cached data immediately, refreshes stale caches in the background, and publishes snapshots
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/models"
)

// DefaultRefreshDelay is how long a stale cache is served before its refresh starts.
const DefaultRefreshDelay = time.Second

// SourceState is the lifecycle of one contact source.
type SourceState int

const (
	StateIdle SourceState = iota
	StateLoading
	StateReady
	StateBackgroundRefreshing
)

func (s SourceState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateBackgroundRefreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// Source names used in snapshots and logs.
const (
	SourcePrimary  = "primary"
	SourceMeetings = "meetings"
	SourceCRM      = "crm"
)

// Inputs drive a Load. A change of inputs is a new Load.
type Inputs struct {
	Token        string
	UserName     string
	CRMConnected bool
}

// Snapshot is the aggregated view published to subscribers.
type Snapshot struct {
	Contacts     []models.Contact
	Loading      bool
	Err          error
	IsRefreshing bool
	States       map[string]SourceState
}

// EngineConfig tunes an Engine. Zero values use the defaults.
type EngineConfig struct {
	PageSize     int
	MaxPages     int
	RefreshDelay time.Duration
	Logger       *log.Logger
}

// Engine aggregates the primary, meeting, and CRM sources for one user at a time.
// The primary source is refetched on every Load. Meeting and CRM contacts
// come from the cache when present, and stale entries are refreshed after
// RefreshDelay without blocking the Load.
type Engine struct {
	primary  PrimarySource
	meetings MeetingSource
	crm      CRMSource
	store    *cache.Store
	cfg      EngineConfig
	logger   *log.Logger

	mu          stdsync.Mutex
	gen         uint64
	inputs      Inputs
	userID      string
	data        map[string][]models.Contact
	states      map[string]SourceState
	errs        map[string]error
	timers      []*time.Timer
	subscribers map[int]func(Snapshot)
	nextSub     int
	seq         uint64

	pubMu     stdsync.Mutex
	published uint64

	refreshes stdsync.WaitGroup
}

// NewEngine creates an Engine. primary and crm may be nil, in which case
// those sources contribute nothing.
func NewEngine(primary PrimarySource, meetings MeetingSource, crm CRMSource, store *cache.Store, cfg EngineConfig) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.RefreshDelay <= 0 {
		cfg.RefreshDelay = DefaultRefreshDelay
	}
	return &Engine{
		primary:     primary,
		meetings:    meetings,
		crm:         crm,
		store:       store,
		cfg:         cfg,
		logger:      loggerOrDefault(cfg.Logger).With("component", "engine"),
		data:        make(map[string][]models.Contact),
		states:      make(map[string]SourceState),
		errs:        make(map[string]error),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to receive every published snapshot. The returned
// function removes the subscription.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// Load recomputes the aggregate for in. It returns once every source has
// either been served from cache or fetched. Results of an earlier Load that
// finish after this one starts are discarded.
func (e *Engine) Load(ctx context.Context, in Inputs) Snapshot {
	userID, err := UserIDFromToken(in.Token)
	if err != nil {
		e.logger.Error("cannot resolve user from token", "err", err)
		return Snapshot{Contacts: []models.Contact{}, Err: err, States: map[string]SourceState{}}
	}

	e.mu.Lock()
	e.stopTimersLocked()
	e.gen++
	gen := e.gen
	e.inputs = in
	e.userID = userID
	e.data = make(map[string][]models.Contact)
	e.states = map[string]SourceState{
		SourcePrimary:  StateIdle,
		SourceMeetings: StateIdle,
		SourceCRM:      StateIdle,
	}
	e.errs = make(map[string]error)
	e.mu.Unlock()

	logger := e.logger.With("user", userID)

	var g errgroup.Group
	g.Go(func() error {
		e.loadPrimary(ctx, gen, in, logger)
		return nil
	})
	g.Go(func() error {
		e.loadCached(ctx, gen, userID, SourceMeetings, cache.MeetingContacts, e.fetchMeetings(in.Token), logger)
		return nil
	})
	g.Go(func() error {
		if !in.CRMConnected || e.crm == nil {
			e.update(gen, func() { e.states[SourceCRM] = StateReady })
			return nil
		}
		e.loadCached(ctx, gen, userID, SourceCRM, cache.CRMContacts, e.fetchCRM, logger)
		return nil
	})
	_ = g.Wait()

	snap := e.Snapshot()
	logger.Info("contacts aggregated", "count", len(snap.Contacts), "refreshing", snap.IsRefreshing)
	return snap
}

func (e *Engine) loadPrimary(ctx context.Context, gen uint64, in Inputs, logger *log.Logger) {
	if e.primary == nil {
		e.update(gen, func() { e.states[SourcePrimary] = StateReady })
		return
	}
	e.update(gen, func() { e.states[SourcePrimary] = StateLoading })

	contacts, err := FetchPrimaryContacts(ctx, e.primary, in.Token, in.UserName)
	if err != nil {
		logger.Error("primary contacts fetch failed", "err", err)
	}
	e.update(gen, func() {
		e.data[SourcePrimary] = contacts
		e.errs[SourcePrimary] = err
		e.states[SourcePrimary] = StateReady
	})
}

type fetchFunc func(ctx context.Context, logger *log.Logger) ([]models.Contact, error)

func (e *Engine) fetchMeetings(token string) fetchFunc {
	return func(ctx context.Context, logger *log.Logger) ([]models.Contact, error) {
		return FetchMeetingContacts(ctx, e.meetings, token, e.cfg.PageSize, e.cfg.MaxPages, logger)
	}
}

func (e *Engine) fetchCRM(ctx context.Context, logger *log.Logger) ([]models.Contact, error) {
	return FetchCRMContacts(ctx, e.crm, logger)
}

// loadCached serves a cached source, scheduling a refresh when stale, or
// fetches and caches it when there is no entry.
func (e *Engine) loadCached(ctx context.Context, gen uint64, userID, source, cacheName string, fetch fetchFunc, logger *log.Logger) {
	logger = logger.With("source", source)

	if entry := e.store.Read(cacheName, userID); entry != nil {
		stale := e.store.IsStale(entry)
		e.update(gen, func() {
			e.data[source] = entry.Data
			e.states[source] = StateReady
			if stale {
				e.states[source] = StateBackgroundRefreshing
			}
		})
		logger.Debug("serving cached contacts", "count", len(entry.Data), "age", e.store.Age(entry), "stale", stale)
		if stale {
			e.scheduleRefresh(context.WithoutCancel(ctx), gen, userID, source, cacheName, fetch, logger)
		}
		return
	}

	e.update(gen, func() { e.states[source] = StateLoading })
	contacts, err := fetch(ctx, logger)
	if err != nil {
		logger.Error("fetch failed", "err", err)
		e.update(gen, func() {
			e.errs[source] = err
			e.states[source] = StateReady
		})
		return
	}
	e.store.Write(cacheName, userID, contacts)
	e.update(gen, func() {
		e.data[source] = contacts
		e.states[source] = StateReady
	})
}

func (e *Engine) scheduleRefresh(ctx context.Context, gen uint64, userID, source, cacheName string, fetch fetchFunc, logger *log.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return
	}

	e.refreshes.Add(1)
	timer := time.AfterFunc(e.cfg.RefreshDelay, func() {
		defer e.refreshes.Done()

		contacts, err := fetch(ctx, logger)
		if err != nil {
			logger.Warn("background refresh failed, keeping cached contacts", "err", err)
			e.update(gen, func() { e.states[source] = StateReady })
			return
		}
		if !e.current(gen) {
			logger.Debug("dropping refresh for superseded load")
			return
		}
		e.store.Write(cacheName, userID, contacts)
		e.update(gen, func() {
			e.data[source] = contacts
			e.states[source] = StateReady
		})
		logger.Info("background refresh complete", "count", len(contacts))
	})
	e.timers = append(e.timers, timer)
}

// stopTimersLocked cancels refreshes that have not started yet.
func (e *Engine) stopTimersLocked() {
	for _, t := range e.timers {
		if t.Stop() {
			e.refreshes.Done()
		}
	}
	e.timers = nil
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.gen
}

// update applies fn if gen is still the active load and publishes the result.
// Subscribers never receive a snapshot older than one already delivered.
func (e *Engine) update(gen uint64, fn func()) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	fn()
	snap := e.snapshotLocked()
	e.seq++
	seq := e.seq
	subs := make([]func(Snapshot), 0, len(e.subscribers))
	for _, s := range e.subscribers {
		subs = append(subs, s)
	}
	e.mu.Unlock()

	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if seq <= e.published {
		return
	}
	e.published = seq
	for _, s := range subs {
		s(snap)
	}
}

// ReplaceMeetingContacts swaps in a merged meeting contact list for userID,
// typically after a manual sync. It is ignored for any other user.
func (e *Engine) ReplaceMeetingContacts(userID string, contacts []models.Contact) {
	e.mu.Lock()
	gen := e.gen
	match := userID == e.userID
	e.mu.Unlock()
	if !match {
		return
	}
	e.update(gen, func() {
		e.data[SourceMeetings] = contacts
		delete(e.errs, SourceMeetings)
	})
}

// Snapshot returns the current aggregate.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	var crm []models.Contact
	if e.inputs.CRMConnected {
		crm = e.data[SourceCRM]
	}
	contacts := Aggregate(e.data[SourcePrimary], e.data[SourceMeetings], crm)

	snap := Snapshot{
		Contacts: contacts,
		States:   make(map[string]SourceState, len(e.states)),
	}
	var errs []error
	loading := false
	for name, st := range e.states {
		snap.States[name] = st
		switch st {
		case StateLoading:
			loading = true
		case StateBackgroundRefreshing:
			snap.IsRefreshing = true
		}
	}
	for _, name := range []string{SourcePrimary, SourceMeetings, SourceCRM} {
		if err := e.errs[name]; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	snap.Loading = loading && len(contacts) == 0
	snap.Err = errors.Join(errs...)
	return snap
}

// Wait blocks until every scheduled background refresh has finished.
func (e *Engine) Wait() {
	e.refreshes.Wait()
}

// Close cancels pending refreshes and waits for running ones.
func (e *Engine) Close() {
	e.mu.Lock()
	e.stopTimersLocked()
	e.gen++
	e.mu.Unlock()
	e.refreshes.Wait()
}
