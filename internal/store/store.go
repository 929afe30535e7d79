package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breeze-rmm/procmon/internal/collector"
	"github.com/breeze-rmm/procmon/internal/health"
	"github.com/breeze-rmm/procmon/internal/logging"
	"github.com/breeze-rmm/procmon/internal/metrics"
	"github.com/breeze-rmm/procmon/internal/process"
)

var log = logging.L("store")

// DefaultInterval is the recommended refresh interval.
const DefaultInterval = time.Second

// Store owns the current process snapshot and the CPU history needed to
// produce the next one. Readers never block; refreshes are single-writer.
type Store struct {
	collector *collector.Collector
	metrics   *metrics.Recorder
	health    *health.Monitor
	now       func() time.Time

	snapshot atomic.Pointer[process.Snapshot]

	// refreshMu is held for the duration of a refresh and guards the
	// fields below.
	refreshMu   sync.Mutex
	history     process.History
	lastRefresh time.Time
	refreshed   bool
	attempts    uint64
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records refresh and termination metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

// WithHealth reports collector health after every refresh.
func WithHealth(m *health.Monitor) Option {
	return func(s *Store) { s.health = m }
}

// WithClock overrides the time source used by Run.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store with an empty snapshot.
func New(c *collector.Collector, opts ...Option) *Store {
	s := &Store{
		collector: c,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&process.Snapshot{})
	if s.health != nil {
		s.health.Update(health.ComponentCollector, health.Unknown, "awaiting first refresh")
	}
	return s
}

// RefreshIfDue collects a new snapshot when at least minInterval has passed
// since the previous attempt (or no attempt has been made yet). It reports
// whether the stored snapshot was replaced.
//
// A failed collection leaves the previous snapshot and history in place and
// returns an error wrapping process.ErrProviderUnavailable. The attempt
// still counts as the last refresh, so a failing provider is retried at
// most once per interval. A call made while another refresh is running
// returns (false, nil) without waiting.
func (s *Store) RefreshIfDue(ctx context.Context, now time.Time, minInterval time.Duration) (bool, error) {
	if !s.refreshMu.TryLock() {
		return false, nil
	}
	defer s.refreshMu.Unlock()

	// A clock that moved backwards re-anchors instead of stalling.
	if s.refreshed && !now.Before(s.lastRefresh) && now.Sub(s.lastRefresh) < minInterval {
		return false, nil
	}
	s.lastRefresh = now
	s.refreshed = true
	s.attempts++
	ctx = logging.ContextWith(ctx, logging.KeyRefresh, s.attempts)
	logger := logging.FromContext(ctx, log)

	start := time.Now()
	snap, hist, err := s.collector.Collect(ctx, s.history)
	elapsed := time.Since(start)

	s.metrics.ObserveRefresh(elapsed, snap.Len(), hist.Len(), err)
	if s.health != nil {
		s.health.RecordResult(health.ComponentCollector, err)
	}

	if err != nil {
		logger.Warn("refresh failed, keeping previous snapshot", logging.KeyError, err.Error())
		return false, err
	}

	s.history = hist
	s.snapshot.Store(&snap)

	logger.Debug("snapshot refreshed",
		"processes", snap.Len(),
		"history", hist.Len(),
		logging.KeyDurationMs, elapsed.Milliseconds(),
	)
	return true, nil
}

// Current returns the latest snapshot.
func (s *Store) Current() process.Snapshot {
	return *s.snapshot.Load()
}

// At returns the record at index i of the current snapshot.
func (s *Store) At(i int) (process.Record, bool) {
	return s.Current().At(i)
}

// ByPID returns the record for pid in the current snapshot.
func (s *Store) ByPID(pid uint32) (process.Record, bool) {
	return s.Current().ByPID(pid)
}

// Terminate ends pid after confirming, against a fresh provider query, that
// it is still the process the current snapshot describes. If the snapshot
// knows pid's start time and the live process started at a different time
// the PID has been reused and the call fails with ErrProcessNotFound.
// The request is sent once and never retried; the stored snapshot is not
// touched.
func (s *Store) Terminate(ctx context.Context, pid uint32, force bool) error {
	err := s.terminate(ctx, pid, force)
	s.metrics.ObserveTermination(terminationResult(err))
	if err != nil {
		log.Warn("terminate failed", logging.KeyPID, pid, logging.KeyError, err.Error())
	}
	return err
}

func (s *Store) terminate(ctx context.Context, pid uint32, force bool) error {
	p := s.collector.Provider()

	live, err := p.Lookup(ctx, pid)
	if err != nil {
		return asTerminationError(pid, err)
	}

	if rec, ok := s.ByPID(pid); ok && rec.StartTime != 0 {
		created, err := live.CreateTime(ctx)
		if err == nil && !created.IsZero() && uint64(created.Unix()) != rec.StartTime {
			return fmt.Errorf("%w: pid %d now belongs to a different process", process.ErrProcessNotFound, pid)
		}
	}

	if err := p.Terminate(ctx, pid, force); err != nil {
		return asTerminationError(pid, err)
	}
	return nil
}

// Run refreshes on every tick of interval until ctx is done, starting with
// an immediate refresh. onRefresh, if non-nil, is called after every
// attempt that was due, with the current snapshot and the attempt's error.
func (s *Store) Run(ctx context.Context, interval time.Duration, onRefresh func(process.Snapshot, error)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	// Ticks can land slightly early; accept them.
	minInterval := interval - interval/10

	tick := func() {
		ok, err := s.RefreshIfDue(ctx, s.now(), minInterval)
		if (ok || err != nil) && onRefresh != nil {
			onRefresh(s.Current(), err)
		}
	}

	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick()
		case <-ctx.Done():
			return
		}
	}
}

func asTerminationError(pid uint32, err error) error {
	if errors.Is(err, process.ErrProcessNotFound) ||
		errors.Is(err, process.ErrPermissionDenied) ||
		errors.Is(err, process.ErrPlatform) {
		return err
	}
	return &process.PlatformError{Op: "terminate", PID: pid, Err: err}
}

func terminationResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, process.ErrProcessNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, process.ErrPermissionDenied):
		return metrics.ResultPermissionDenied
	default:
		return metrics.ResultPlatformError
	}
}
