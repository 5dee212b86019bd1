// Package schedule runs recurring maintenance tasks such as expiring
// unpaid orders.
//
//	s := schedule.New()
//	s.Every(5 * time.Minute).Name("orders:expire").WithoutOverlapping().Run(expire)
//	go s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shashiranjanraj/giftkart/pkg/logger"
)

// Task is the function signature for a scheduled task.
type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler holds the registered entries.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
	tick    time.Duration
}

func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Builder configures one entry before Run registers it.
type Builder struct {
	s *Scheduler
	e *entry
}

// Every starts a builder for a task run at the given interval.
func (s *Scheduler) Every(d time.Duration) *Builder {
	return &Builder{s: s, e: &entry{interval: d}}
}

// Name gives the entry an identifier for logs and RunNow.
func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// WithoutOverlapping skips a tick while the previous run is still going.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

// Run registers the task.
func (b *Builder) Run(fn Task) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	b.e.task = fn
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
}

// Start dispatches due tasks until ctx is cancelled, then waits for
// running tasks to return. Every task runs once right after Start.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("schedule: scheduler started", "tasks", len(s.List()))
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.dispatchDue(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: scheduler stopped")
			return
		case now := <-ticker.C:
			s.dispatchDue(ctx, now)
		}
	}
}

func (s *Scheduler) snapshot() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	for _, e := range s.snapshot() {
		e := e // per-iteration copy (go 1.21 loop semantics)
		e.mu.Lock()
		due := e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
		if !due {
			e.mu.Unlock()
			continue
		}
		if e.noOverlap && e.running {
			e.mu.Unlock()
			logger.Warn("schedule: skipping overlapping task", "id", e.id)
			continue
		}
		e.running = true
		e.lastRun = now
		e.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.execute(ctx, e)
		}()
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		if r := recover(); r != nil {
			logger.Error("schedule: task panicked", "id", e.id, "panic", r)
		}
	}()

	start := time.Now()
	if err := e.task(ctx); err != nil {
		logger.Error("schedule: task failed", "id", e.id, "error", err)
		return
	}
	logger.Debug("schedule: task finished", "id", e.id, "took", time.Since(start))
}

// RunNow runs every registered task once, in registration order, and
// returns the joined failures. Used by the schedule:run command.
func (s *Scheduler) RunNow(ctx context.Context) error {
	var errs []error
	for _, e := range s.snapshot() {
		if err := e.task(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.id, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("schedule: %d task(s) failed: %v", len(errs), errs)
}

// List returns the registered entries for CLI display, sorted by name.
func (s *Scheduler) List() []string {
	entries := s.snapshot()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s  [every %s]", e.id, e.interval))
	}
	sort.Strings(out)
	return out
}
