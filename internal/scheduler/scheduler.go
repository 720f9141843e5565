package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ProcessFunc runs one digest pass for a user and returns the next time
// the user should be processed. A zero time means nothing to schedule.
type ProcessFunc func(ctx context.Context, userID string) (time.Time, error)

type entry struct {
	timer      *time.Timer
	generation int64
	at         time.Time
	running    bool
}

// Scheduler keeps at most one pending timer per user. Scheduling a user
// that already has a timer replaces it, never stacks a second one. A
// fire that lands while the user's previous cycle is still running
// re-arms itself instead of starting an overlapping cycle.
type Scheduler struct {
	mu         sync.Mutex
	entries    map[string]*entry
	process    ProcessFunc
	retryDelay time.Duration
	logger     *zap.Logger
	generation atomic.Int64
	stopped    atomic.Bool
}

// New creates a new per-user scheduler
func New(process ProcessFunc, retryDelay time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		entries:    make(map[string]*entry),
		process:    process,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Schedule arms (or re-arms) the user's single timer for the given
// time. Any pending timer for the same user is cancelled first.
func (s *Scheduler) Schedule(userID string, at time.Time) {
	if s.stopped.Load() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generation.Inc()
	e := s.entries[userID]
	if e == nil {
		e = &entry{}
		s.entries[userID] = e
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.generation = gen
	e.at = at

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	e.timer = time.AfterFunc(delay, func() { s.fire(userID, gen) })

	s.logger.Info("Scheduled digest run",
		zap.String("user_id", userID),
		zap.Time("at", at))
}

// Cancel drops the user's pending timer, if any
func (s *Scheduler) Cancel(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.entries[userID]; e != nil {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, userID)
	}
}

// NextRun reports the pending fire time for a user, if one is armed
func (s *Scheduler) NextRun(userID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[userID]
	if e == nil || e.timer == nil {
		return time.Time{}, false
	}
	return e.at, true
}

// Stop cancels every pending timer. In-flight cycles run to completion
// but do not reschedule.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.entries, userID)
	}
}

// EnrollAll arms a timer for every user that owns at least one mailbox,
// at the earliest persisted next summary time. Run at process startup so
// schedules survive restarts.
func (s *Scheduler) EnrollAll(ctx context.Context, store core.Store) error {
	users, err := store.UsersWithMailboxes(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		mailboxes, err := store.MailboxesByUser(ctx, user.ID)
		if err != nil {
			s.logger.Error("Failed to load mailboxes during enrollment",
				zap.String("user_id", user.ID),
				zap.Error(err))
			continue
		}

		var next time.Time
		for _, mb := range mailboxes {
			if next.IsZero() || mb.NextSummaryTime.Before(next) {
				next = mb.NextSummaryTime
			}
		}
		if !next.IsZero() {
			s.Schedule(user.ID, next)
		}
	}

	s.logger.Info("Enrolled users at startup", zap.Int("users", len(users)))
	return nil
}

func (s *Scheduler) fire(userID string, gen int64) {
	if s.stopped.Load() {
		return
	}

	s.mu.Lock()
	e := s.entries[userID]
	if e == nil || e.generation != gen {
		// A newer Schedule call replaced this timer.
		s.mu.Unlock()
		return
	}
	if e.running {
		// The previous cycle for this user has not finished; re-arm
		// rather than processing the same user concurrently.
		at := time.Now().Add(s.retryDelay)
		e.at = at
		e.timer = time.AfterFunc(s.retryDelay, func() { s.fire(userID, gen) })
		s.mu.Unlock()
		s.logger.Warn("Previous cycle still running, deferring",
			zap.String("user_id", userID),
			zap.Time("retry_at", at))
		return
	}
	e.running = true
	s.mu.Unlock()

	next, err := s.process(context.Background(), userID)

	s.mu.Lock()
	if e := s.entries[userID]; e != nil {
		e.running = false
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Digest run failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	if !next.IsZero() {
		s.Schedule(userID, next)
	}
}
