package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexora-app/lexora-sync/internal/logging"
)

// DefaultDebounce is the quiet period after the last mutation before an
// auto sync fires.
const DefaultDebounce = 5 * time.Second

// Runner is the slice of the sync service the scheduler drives.
type Runner interface {
	AutoSync(ctx context.Context, trigger Trigger) (*AutoSyncOutcome, error)
	Status() Status
}

// Scheduler decides when auto syncs run. Mutations are debounced behind a
// quiet period, reviews, startup and reconnect fire immediately, and an
// in-flight flag collapses overlapping auto triggers into one run.
// The flag only dedupes the scheduler's own runs; user-invoked syncs queue
// on the sync service's run mutex instead.
type Scheduler struct {
	runner   Runner
	debounce time.Duration
	log      logging.Logger

	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	inFlight atomic.Bool
}

func NewScheduler(runner Runner, debounce time.Duration, log logging.Logger) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Scheduler{runner: runner, debounce: debounce, log: log}
}

// NotifyMutation restarts the debounce window. A burst of edits produces a
// single sync once the burst goes quiet.
func (s *Scheduler) NotifyMutation() {
	s.schedule(TriggerMutation)
}

// NotifyReview runs a sync immediately after a completed review. Finishing
// a study session is a natural quiet point, so there is no window to wait
// out.
func (s *Scheduler) NotifyReview() {
	go s.run(TriggerReview)
}

// NotifyStartup runs the boot sync immediately in the background.
func (s *Scheduler) NotifyStartup() {
	go s.run(TriggerStartup)
}

// NotifyReconnect runs a sync immediately when connectivity returns, but
// only when there is something pending to push.
func (s *Scheduler) NotifyReconnect() {
	if !s.runner.Status().PendingChanges {
		return
	}
	go s.run(TriggerReconnect)
}

// Stop cancels the pending debounce timer. An already-dispatched run is
// left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) schedule(trigger Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(trigger)
	})
}

func (s *Scheduler) run(trigger Trigger) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug(context.Background(), "auto sync already in flight, skipping", "trigger", trigger)
		return
	}
	defer s.inFlight.Store(false)

	ctx := context.Background()
	outcome, err := s.runner.AutoSync(ctx, trigger)
	if err != nil {
		s.log.Warn(ctx, "auto sync failed", "trigger", trigger, "error", err)
		return
	}
	if outcome != nil && !outcome.DidSync {
		s.log.Debug(ctx, "auto sync skipped", "trigger", trigger, "reason", outcome.Reason)
		return
	}
	s.log.Info(ctx, "auto sync completed", "trigger", trigger)
}
