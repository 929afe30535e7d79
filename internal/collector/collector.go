package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/breeze-rmm/procmon/internal/logging"
	"github.com/breeze-rmm/procmon/internal/process"
)

var log = logging.L("collector")

const (
	DefaultWorkers = 8
	DefaultTimeout = 5 * time.Second
)

// Collector turns a Provider's raw process list into a sorted Snapshot.
type Collector struct {
	provider Provider
	workers  int
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithWorkers bounds how many processes are read concurrently.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithTimeout bounds a whole collection. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithClock overrides the time source used for TakenAt and run times.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Collector reading from p.
func New(p Provider, opts ...Option) *Collector {
	c := &Collector{
		provider: p,
		workers:  DefaultWorkers,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider the collector reads from.
func (c *Collector) Provider() Provider {
	return c.provider
}

type sample struct {
	rec       process.Record
	times     process.CPUTimes
	haveTimes bool
	keep      bool
	partial   bool
}

// Collect enumerates all live processes and derives CPU usage against prev.
// The returned History holds exactly the PIDs of the returned Snapshot that
// had readable CPU counters. If the provider cannot enumerate processes the
// error wraps process.ErrProviderUnavailable.
func (c *Collector) Collect(ctx context.Context, prev process.History) (process.Snapshot, process.History, error) {
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	handles, err := c.provider.Processes(ctx)
	if err != nil {
		return process.Snapshot{}, process.History{}, unavailable("enumerate processes", err)
	}

	system, err := c.provider.SystemCPUTimes(ctx)
	if err != nil {
		return process.Snapshot{}, process.History{}, unavailable("read system cpu times", err)
	}

	cores, err := c.provider.NumCPU(ctx)
	if err != nil || cores < 1 {
		cores = 1
	}

	now := c.now()
	samples := make([]sample, len(handles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, h := range handles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			samples[i] = readSample(gctx, h, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return process.Snapshot{}, process.History{}, unavailable("read processes", err)
	}
	if err := ctx.Err(); err != nil {
		return process.Snapshot{}, process.History{}, unavailable("read processes", err)
	}

	next := process.NewHistory(system, len(samples))
	records := make([]process.Record, 0, len(samples))
	var vanished, partial int
	for _, s := range samples {
		if !s.keep {
			vanished++
			continue
		}
		if s.partial {
			partial++
		}

		rec := s.rec
		if s.haveTimes {
			cur := process.CPUSample{Times: s.times, StartTime: rec.StartTime}
			if old, ok := prev.Lookup(rec.PID); ok {
				rec.CPUPercent = CPUPercent(old, cur, prev.System, system, cores)
			}
			next.Set(rec.PID, cur)
		}
		records = append(records, rec)
	}

	snap := process.NewSnapshot(now, cores, records)

	logging.FromContext(ctx, log).Debug("collected processes",
		"processes", snap.Len(),
		"vanished", vanished,
		"partial", partial,
		logging.KeyDurationMs, time.Since(start).Milliseconds(),
	)

	return snap, next, nil
}

// CPUPercent derives usage from two samples of the same process and the
// matching system-wide counters. The result is in [0, 100*cores]. A sample
// whose start time differs from prev belongs to a reused PID and reports 0.
func CPUPercent(prev, cur process.CPUSample, prevSys, curSys process.CPUTimes, cores int) float64 {
	if prev.StartTime != cur.StartTime {
		return 0
	}

	procDelta := (cur.Times.User - prev.Times.User) + (cur.Times.System - prev.Times.System)
	sysDelta := (curSys.User - prevSys.User) + (curSys.System - prevSys.System)
	if sysDelta <= 0 {
		return 0
	}

	pct := 100 * procDelta / sysDelta
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if limit := 100 * float64(max(cores, 1)); pct > limit {
		return limit
	}
	return pct
}

func readSample(ctx context.Context, h Handle, now time.Time) sample {
	s := sample{rec: process.Record{PID: h.PID()}}

	name, err := h.Name(ctx)
	if err != nil {
		if errors.Is(err, process.ErrVanished) {
			return sample{}
		}
		s.partial = true
	}
	s.rec.Name = name
	s.keep = true

	if v, err := h.Cmdline(ctx); err == nil {
		s.rec.CommandLine = v
	} else {
		s.partial = true
	}

	if v, err := h.Environ(ctx); err == nil {
		s.rec.Environment = v
	} else {
		s.partial = true
	}

	if uid, err := h.UID(ctx); err == nil {
		s.rec.OwnerID = &uid
	} else {
		s.partial = true
	}

	if ppid, err := h.ParentPID(ctx); err == nil {
		if ppid > 0 {
			s.rec.ParentPID = &ppid
		}
	} else {
		s.partial = true
	}

	if rss, vms, err := h.Memory(ctx); err == nil {
		s.rec.ResidentMem = rss
		s.rec.VirtualMem = vms
	} else {
		s.partial = true
	}

	if st, err := h.Status(ctx); err == nil {
		s.rec.Status = process.ParseStatus(st)
	} else {
		s.partial = true
	}

	if created, err := h.CreateTime(ctx); err == nil && !created.IsZero() {
		if unix := created.Unix(); unix > 0 {
			s.rec.StartTime = uint64(unix)
		}
		if run := now.Sub(created); run > 0 {
			s.rec.RunTime = uint64(run / time.Second)
		}
	} else {
		s.partial = true
	}

	if t, err := h.CPUTimes(ctx); err == nil {
		s.times = t
		s.haveTimes = true
	} else {
		s.partial = true
	}

	if r, w, err := h.IOCounters(ctx); err == nil {
		s.rec.IOReadBytes = r
		s.rec.IOWriteBytes = w
	} else {
		s.partial = true
	}

	return s
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", process.ErrProviderUnavailable, op, err)
}
