// Package datasync keeps the dashboard's copy of the backend collections
// current. Every change notification turns into a full re-fetch of the
// affected collection; the cached snapshots are swapped atomically and
// handed out as copies.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/stats"
	"github.com/chachabrian/mooveit-admin/internal/store"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRideLimit = 100

	statsKey = "stats"
)

type Options struct {
	// RideLimit caps the rides snapshot. Zero means DefaultRideLimit.
	RideLimit int
	// RefreshInterval re-fetches everything periodically. Zero disables it.
	RefreshInterval time.Duration
	WindowDays      int
	WindowWeeks     int
	// Placeholder marks a syncer running over static sample data.
	Placeholder bool
	Now         func() time.Time
	Logger      log.FieldLogger
}

type kindState struct {
	snapshot  models.Collection
	issued    uint64
	revision  uint64
	fetchedAt time.Time
	lastErr   error
}

// Syncer owns the cached snapshot of every entity kind.
type Syncer struct {
	backend store.Collaborator
	opts    Options
	log     log.FieldLogger
	flight  singleflight.Group
	events  listeners

	mu            sync.RWMutex
	kinds         map[models.EntityKind]*kindState
	stats         models.DashboardStats
	days          []models.DayBucket
	weeks         []models.WeekBucket
	statsIssued   uint64
	statsRevision uint64
	statsErr      error
	runCtx        context.Context

	signals     map[models.EntityKind]chan struct{}
	statsSignal chan struct{}

	runMu   sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	handles []store.Handle
	wg      sync.WaitGroup
}

func NewSyncer(backend store.Collaborator, opts Options) *Syncer {
	if opts.RideLimit <= 0 {
		opts.RideLimit = DefaultRideLimit
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = stats.DefaultWindowDays
	}
	if opts.WindowWeeks <= 0 {
		opts.WindowWeeks = stats.DefaultWindowWeeks
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	s := &Syncer{
		backend:     backend,
		opts:        opts,
		log:         opts.Logger.WithField("component", "datasync"),
		kinds:       make(map[models.EntityKind]*kindState, len(models.AllKinds)),
		signals:     make(map[models.EntityKind]chan struct{}, len(models.AllKinds)),
		statsSignal: make(chan struct{}, 1),
		days:        []models.DayBucket{},
		weeks:       []models.WeekBucket{},
	}
	for _, kind := range models.AllKinds {
		s.kinds[kind] = &kindState{snapshot: models.Collection{Kind: kind}}
		s.signals[kind] = make(chan struct{}, 1)
	}
	return s
}

// Query returns the default collection query of kind.
func (s *Syncer) Query(kind models.EntityKind) store.Query {
	switch kind {
	case models.KindClients:
		return store.Query{
			Filters:    []store.Filter{store.Eq("is_driver", false)},
			OrderBy:    "created_at",
			Descending: true,
		}
	case models.KindRides:
		return store.Query{OrderBy: "created_at", Descending: true, Limit: s.opts.RideLimit}
	case models.KindVerifications:
		return store.Query{OrderBy: "submitted_at", Descending: true}
	}
	return store.Query{OrderBy: "created_at", Descending: true}
}

// Refresh fetches the whole collection of kind and replaces the cached
// snapshot. The result always comes from a fetch that started after the
// call; concurrent calls share that fetch. On failure the previous snapshot
// stays in place.
func (s *Syncer) Refresh(ctx context.Context, kind models.EntityKind) (models.Collection, error) {
	if _, ok := s.kinds[kind]; !ok {
		return models.Collection{}, &models.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown entity kind %q", kind)}
	}
	v, err := s.shared(ctx, string(kind), func(fctx context.Context) (flightResult, error) {
		return s.refresh(fctx, kind)
	})
	if err != nil {
		return models.Collection{}, err
	}
	return v.(models.Collection).Clone(), nil
}

// flightResult is handed to every caller sharing a fetch. ticket orders the
// fetch against the callers' own calls.
type flightResult struct {
	val    any
	ticket uint64
}

// shared runs fn under key and returns the outcome of a run that started
// after this call, joining one that is already under way only if it began
// later. fn runs on the syncer's context so one caller giving up does not
// fail the others; each caller stops waiting on its own ctx.
func (s *Syncer) shared(ctx context.Context, key string, fn func(context.Context) (flightResult, error)) (any, error) {
	after := s.started(key)
	for {
		ch := s.flight.DoChan(key, func() (any, error) {
			return fn(s.flightContext())
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			r, _ := res.Val.(flightResult)
			if r.ticket <= after {
				// began before the call, run again
				continue
			}
			if res.Err != nil {
				return nil, res.Err
			}
			return r.val, nil
		}
	}
}

// started returns the ticket of the latest run issued under key.
func (s *Syncer) started(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key == statsKey {
		return s.statsIssued
	}
	return s.kinds[models.EntityKind(key)].issued
}

// flightContext is the run context while started, else a background one.
func (s *Syncer) flightContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runCtx != nil {
		return s.runCtx
	}
	return context.Background()
}

func (s *Syncer) refresh(ctx context.Context, kind models.EntityKind) (flightResult, error) {
	ticket := s.issue(kind)
	col, err := s.backend.FetchCollection(ctx, kind, s.Query(kind))
	if err != nil {
		err = models.NewFetchError(kind, "fetch", err)
		if ctx.Err() == nil {
			s.fail(kind, err)
		}
		return flightResult{ticket: ticket}, err
	}
	col.Kind = kind

	rev, ok := s.commit(kind, ticket, col)
	if !ok {
		s.log.WithFields(log.Fields{"kind": kind, "ticket": ticket, "revision": rev}).Debug("Discarding stale snapshot")
		return flightResult{val: s.Snapshot(kind), ticket: ticket}, nil
	}
	s.log.WithFields(log.Fields{"kind": kind, "revision": rev, "rows": col.Len()}).Debug("Snapshot replaced")
	s.events.emit(Event{Type: EventSnapshotUpdated, Kind: kind, Revision: rev, At: s.opts.Now()})
	return flightResult{val: col, ticket: ticket}, nil
}

func (s *Syncer) issue(kind models.EntityKind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.kinds[kind]
	st.issued++
	return st.issued
}

// commit installs col unless a newer fetch already landed.
func (s *Syncer) commit(kind models.EntityKind, ticket uint64, col models.Collection) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.kinds[kind]
	if ticket <= st.revision {
		return st.revision, false
	}
	st.snapshot = col
	st.revision = ticket
	st.fetchedAt = s.opts.Now()
	st.lastErr = nil
	return ticket, true
}

func (s *Syncer) fail(kind models.EntityKind, err error) {
	s.mu.Lock()
	s.kinds[kind].lastErr = err
	s.mu.Unlock()

	s.log.WithError(err).WithField("kind", kind).Warn("Refresh failed, keeping previous snapshot")
	s.events.emit(Event{Type: EventRefreshFailed, Kind: kind, Err: err, At: s.opts.Now()})
}

// RefreshStats recomputes the dashboard counters and chart buckets. Either
// everything is replaced or nothing is.
func (s *Syncer) RefreshStats(ctx context.Context) error {
	_, err := s.shared(ctx, statsKey, func(fctx context.Context) (flightResult, error) {
		ticket := s.issueStats()
		return flightResult{ticket: ticket}, s.refreshStats(fctx)
	})
	return err
}

func (s *Syncer) issueStats() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsIssued++
	return s.statsIssued
}

func (s *Syncer) refreshStats(ctx context.Context) error {
	now := s.opts.Now()
	var (
		st        models.DashboardStats
		completed models.Collection
		recent    models.Collection
	)

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, kind models.EntityKind, filters ...store.Filter) {
		g.Go(func() error {
			n, err := s.backend.FetchCount(gctx, kind, filters...)
			if err != nil {
				return models.NewFetchError(kind, "count", err)
			}
			*dst = n
			return nil
		})
	}
	count(&st.Clients, models.KindClients, store.Eq("is_driver", false))
	count(&st.Drivers, models.KindDrivers)
	count(&st.Rides, models.KindRides)
	count(&st.ActiveRides, models.KindRides, store.In("status", models.ActiveRideStatuses...))
	count(&st.OnlineDrivers, models.KindDrivers, store.Eq("status", models.DriverStatusAvailable))
	count(&st.RidesToday, models.KindRides,
		store.Eq("status", models.RideStatusCompleted),
		store.Gte("created_at", stats.StartOfDay(now)))
	count(&st.PendingVerifications, models.KindVerifications, store.Eq("status", models.VerificationPending))

	g.Go(func() error {
		var err error
		completed, err = s.backend.FetchCollection(gctx, models.KindRides, store.Query{
			Filters: []store.Filter{store.Eq("status", models.RideStatusCompleted)},
		})
		return models.NewFetchError(models.KindRides, "revenue", err)
	})

	since := s.opts.WindowDays
	if w := 7 * s.opts.WindowWeeks; w > since {
		since = w
	}
	g.Go(func() error {
		var err error
		recent, err = s.backend.FetchCollection(gctx, models.KindRides, store.Query{
			Filters: []store.Filter{store.Gte("created_at", now.AddDate(0, 0, -since))},
			OrderBy: "created_at",
		})
		return models.NewFetchError(models.KindRides, "charts", err)
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.mu.Lock()
		s.statsErr = err
		s.mu.Unlock()
		s.log.WithError(err).Warn("Stats refresh failed, keeping previous values")
		s.events.emit(Event{Type: EventRefreshFailed, Err: err, At: now})
		return err
	}

	st.Revenue = stats.Revenue(completed.Rides)
	st.ComputedAt = now
	days := stats.GroupByDay(recent.Rides, now, s.opts.WindowDays)
	weeks := stats.GroupByWeek(recent.Rides, now, s.opts.WindowWeeks)

	s.mu.Lock()
	s.stats = st
	s.days = days
	s.weeks = weeks
	s.statsErr = nil
	s.statsRevision++
	rev := s.statsRevision
	s.mu.Unlock()

	s.events.emit(Event{Type: EventStatsUpdated, Revision: rev, At: now})
	return nil
}

// OnExternalChange is the collaborator's change callback. It never blocks:
// the refresh runs on the kind's worker, and changes arriving while a fetch
// is in flight collapse into a single trailing refresh.
func (s *Syncer) OnExternalChange(ev store.ChangeEvent) {
	sig, ok := s.signals[ev.Kind]
	if !ok {
		s.log.WithField("kind", ev.Kind).Warn("Ignoring change for unknown kind")
		return
	}
	change := ev
	s.events.emit(Event{Type: EventChange, Kind: ev.Kind, Change: &change, At: s.opts.Now()})
	notify(sig)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

// Start loads every collection, subscribes to changes and starts the
// refresh workers. Load failures are logged; the snapshot stays empty until
// a later refresh succeeds.
func (s *Syncer) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running.Load() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.setRunContext(runCtx)

	for _, kind := range models.AllKinds {
		drain(s.signals[kind])
		if _, err := s.Refresh(runCtx, kind); err != nil {
			s.log.WithError(err).WithField("kind", kind).Warn("Initial load failed")
		}
	}
	drain(s.statsSignal)
	if err := s.RefreshStats(runCtx); err != nil {
		s.log.WithError(err).Warn("Initial stats load failed")
	}

	handles := make([]store.Handle, 0, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		h, err := s.backend.Subscribe(runCtx, kind, nil, s.OnExternalChange)
		if err != nil {
			for _, prev := range handles {
				_ = s.backend.Unsubscribe(prev)
			}
			cancel()
			s.setRunContext(nil)
			return fmt.Errorf("failed to subscribe to %s: %w", kind, err)
		}
		handles = append(handles, h)
	}

	for _, kind := range models.AllKinds {
		s.wg.Add(1)
		go s.worker(runCtx, kind, s.signals[kind])
	}
	s.wg.Add(1)
	go s.statsWorker(runCtx)
	if s.opts.RefreshInterval > 0 {
		s.wg.Add(1)
		go s.tick(runCtx, s.opts.RefreshInterval)
	}

	s.cancel = cancel
	s.handles = handles
	s.running.Store(true)
	s.log.WithFields(log.Fields{
		"placeholder": s.opts.Placeholder,
		"interval":    s.opts.RefreshInterval,
	}).Info("Data sync started")
	return nil
}

// Stop unsubscribes every handle and waits for the workers to exit. It is
// safe to call more than once.
func (s *Syncer) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if !s.running.Load() {
		return nil
	}

	var errs []error
	for _, h := range s.handles {
		if err := s.backend.Unsubscribe(h); err != nil {
			errs = append(errs, fmt.Errorf("failed to unsubscribe %s: %w", h, err))
		}
	}
	s.cancel()
	s.wg.Wait()
	s.setRunContext(nil)

	s.handles = nil
	s.cancel = nil
	s.running.Store(false)
	s.log.Info("Data sync stopped")
	return errors.Join(errs...)
}

func (s *Syncer) setRunContext(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()
}

func (s *Syncer) worker(ctx context.Context, kind models.EntityKind, sig <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
		}
		if _, err := s.Refresh(ctx, kind); err != nil && ctx.Err() != nil {
			return
		}
		// every kind feeds a dashboard counter
		notify(s.statsSignal)
	}
}

func (s *Syncer) statsWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.statsSignal:
		}
		if err := s.RefreshStats(ctx); err != nil && ctx.Err() != nil {
			return
		}
	}
}

func (s *Syncer) tick(ctx context.Context, every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, kind := range models.AllKinds {
				notify(s.signals[kind])
			}
		}
	}
}

// Listen registers fn for every cache event and returns its cancel func.
func (s *Syncer) Listen(fn Listener) func() {
	return s.events.add(fn)
}

// Running reports whether Start has been called without a matching Stop.
func (s *Syncer) Running() bool {
	return s.running.Load()
}

// Placeholder reports whether the syncer serves static sample data.
func (s *Syncer) Placeholder() bool {
	return s.opts.Placeholder
}

// Snapshot returns a copy of the cached collection of kind.
func (s *Syncer) Snapshot(kind models.EntityKind) models.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.kinds[kind]
	if !ok {
		return models.Collection{Kind: kind}
	}
	return st.snapshot.Clone()
}

// Revision returns the committed revision of kind.
func (s *Syncer) Revision(kind models.EntityKind) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.kinds[kind]; ok {
		return st.revision
	}
	return 0
}

func (s *Syncer) Clients() []models.Client {
	return s.Snapshot(models.KindClients).Clients
}

func (s *Syncer) Drivers() []models.Driver {
	return s.Snapshot(models.KindDrivers).Drivers
}

func (s *Syncer) Rides() []models.Ride {
	return s.Snapshot(models.KindRides).Rides
}

func (s *Syncer) Verifications() []models.DriverVerification {
	return s.Snapshot(models.KindVerifications).Verifications
}

func (s *Syncer) Stats() models.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Syncer) DayBuckets() []models.DayBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.DayBucket{}, s.days...)
}

func (s *Syncer) WeekBuckets() []models.WeekBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WeekBucket{}, s.weeks...)
}

// VerificationCounts tallies the cached verification list.
func (s *Syncer) VerificationCounts() models.VerificationCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CountVerifications(s.kinds[models.KindVerifications].snapshot.Verifications)
}

func (s *Syncer) Health() Health {
	running := s.Running()

	s.mu.RLock()
	defer s.mu.RUnlock()
	h := Health{
		Running:     running,
		Placeholder: s.opts.Placeholder,
		Degraded:    s.opts.Placeholder,
		Kinds:       make(map[models.EntityKind]KindHealth, len(s.kinds)),
		StatsAt:     s.stats.ComputedAt,
	}
	for kind, st := range s.kinds {
		kh := KindHealth{Revision: st.revision, Rows: st.snapshot.Len(), FetchedAt: st.fetchedAt}
		if st.lastErr != nil {
			kh.LastError = st.lastErr.Error()
			h.Degraded = true
		}
		h.Kinds[kind] = kh
	}
	if s.statsErr != nil {
		h.StatsError = s.statsErr.Error()
		h.Degraded = true
	}
	return h
}
