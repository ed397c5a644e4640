// Package maintenance runs the once-a-day cleanup at local midnight.
package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/ent0n29/pomochat/internal/tasks"
)

type TaskStore interface {
	PruneStale(today tasks.Date) int
	ResetDailyStats()
}

type LurkerSet interface {
	Clear()
}

// Scheduler prunes stale tasks, resets the daily counters and clears the
// lurker set each time the local calendar day changes. The timer engine keeps
// its own lazy rollover and is not touched here.
type Scheduler struct {
	tasks   TaskStore
	lurkers LurkerSet
	now     func() time.Time
	onRun   func(pruned int)
}

func New(store TaskStore, lurkers LurkerSet) *Scheduler {
	return &Scheduler{tasks: store, lurkers: lurkers, now: time.Now}
}

// SetClock replaces the wall clock. Intended for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// SetRunHook registers a callback invoked after every completed run.
func (s *Scheduler) SetRunHook(hook func(pruned int)) {
	s.onRun = hook
}

// Run blocks until ctx is cancelled, firing RunOnce at every local midnight.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		wait := UntilNextMidnight(s.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(tasks.DateOf(s.now()))
		}
	}
}

// Start runs the scheduler on its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go s.Run(ctx)
}

func (s *Scheduler) RunOnce(today tasks.Date) int {
	pruned := s.tasks.PruneStale(today)
	s.tasks.ResetDailyStats()
	if s.lurkers != nil {
		s.lurkers.Clear()
	}
	log.Printf("daily maintenance for %s: pruned %d stale tasks", today, pruned)
	if s.onRun != nil {
		s.onRun(pruned)
	}
	return pruned
}

// UntilNextMidnight returns the time left until the start of the next local
// calendar day. It is never zero, so a run that fires a little early cannot
// spin.
func UntilNextMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	wait := next.Sub(now)
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}
