package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

func TestScheduleFiresProcess(t *testing.T) {
	fired := make(chan string, 1)
	sched := New(func(ctx context.Context, userID string) (time.Time, error) {
		fired <- userID
		return time.Time{}, nil
	}, time.Minute, zap.NewNop())
	defer sched.Stop()

	sched.Schedule("u1", time.Now().Add(10*time.Millisecond))

	select {
	case got := <-fired:
		if got != "u1" {
			t.Errorf("fired for %q, want u1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestScheduleReplacesPendingTimer(t *testing.T) {
	var calls atomic.Int64
	done := make(chan struct{}, 4)
	sched := New(func(ctx context.Context, userID string) (time.Time, error) {
		calls.Inc()
		done <- struct{}{}
		return time.Time{}, nil
	}, time.Minute, zap.NewNop())
	defer sched.Stop()

	sched.Schedule("u1", time.Now().Add(20*time.Millisecond))
	sched.Schedule("u1", time.Now().Add(40*time.Millisecond))
	sched.Schedule("u1", time.Now().Add(60*time.Millisecond))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	// Give any stacked timer a chance to misfire.
	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("process ran %d times, want 1 (re-scheduling must replace, not stack)", got)
	}
}

func TestFireReschedulesAtReturnedTime(t *testing.T) {
	var calls atomic.Int64
	done := make(chan struct{}, 4)
	sched := New(func(ctx context.Context, userID string) (time.Time, error) {
		done <- struct{}{}
		if calls.Inc() == 1 {
			return time.Now().Add(20 * time.Millisecond), nil
		}
		return time.Time{}, nil
	}, time.Minute, zap.NewNop())
	defer sched.Stop()

	sched.Schedule("u1", time.Now())

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d never fired", i+1)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("process ran %d times, want 2", got)
	}
}

func TestFireDefersWhileCycleRunning(t *testing.T) {
	var concurrent, maxConcurrent atomic.Int64
	release := make(chan struct{})
	done := make(chan struct{}, 4)

	sched := New(func(ctx context.Context, userID string) (time.Time, error) {
		if c := concurrent.Inc(); c > maxConcurrent.Load() {
			maxConcurrent.Store(c)
		}
		if concurrent.Load() == 1 {
			<-release
		}
		concurrent.Dec()
		done <- struct{}{}
		return time.Time{}, nil
	}, 20*time.Millisecond, zap.NewNop())
	defer sched.Stop()

	sched.Schedule("u1", time.Now())
	time.Sleep(30 * time.Millisecond) // first cycle is now blocked inside process

	// This fire lands while the first cycle is running and must defer.
	sched.Schedule("u1", time.Now())
	time.Sleep(30 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d never finished", i+1)
		}
	}
	if got := maxConcurrent.Load(); got != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", got)
	}
}

func TestCancelDropsPendingTimer(t *testing.T) {
	var calls atomic.Int64
	sched := New(func(ctx context.Context, userID string) (time.Time, error) {
		calls.Inc()
		return time.Time{}, nil
	}, time.Minute, zap.NewNop())
	defer sched.Stop()

	sched.Schedule("u1", time.Now().Add(30*time.Millisecond))
	if _, ok := sched.NextRun("u1"); !ok {
		t.Fatal("expected a pending run after Schedule")
	}
	sched.Cancel("u1")
	if _, ok := sched.NextRun("u1"); ok {
		t.Error("expected no pending run after Cancel")
	}

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("process ran %d times after Cancel, want 0", got)
	}
}

func TestStopPreventsFurtherScheduling(t *testing.T) {
	var calls atomic.Int64
	sched := New(func(ctx context.Context, userID string) (time.Time, error) {
		calls.Inc()
		return time.Time{}, nil
	}, time.Minute, zap.NewNop())

	sched.Schedule("u1", time.Now().Add(30*time.Millisecond))
	sched.Stop()
	sched.Schedule("u2", time.Now())

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("process ran %d times after Stop, want 0", got)
	}
}

type enrollStore struct {
	users     []core.User
	mailboxes map[string][]core.Mailbox
}

func (s *enrollStore) Ping(ctx context.Context) error { return nil }

func (s *enrollStore) GetOrCreateUser(ctx context.Context, chatID string) (*core.User, error) {
	return nil, core.ErrUserNotFound
}

func (s *enrollStore) UserByID(ctx context.Context, id string) (*core.User, error) {
	return nil, core.ErrUserNotFound
}

func (s *enrollStore) UsersWithMailboxes(ctx context.Context) ([]core.User, error) {
	return s.users, nil
}

func (s *enrollStore) CreateMailbox(ctx context.Context, mb *core.Mailbox) error { return nil }

func (s *enrollStore) MailboxesByUser(ctx context.Context, userID string) ([]core.Mailbox, error) {
	return s.mailboxes[userID], nil
}

func (s *enrollStore) MailboxByID(ctx context.Context, id, chatID string) (*core.Mailbox, error) {
	return nil, core.ErrMailboxNotFound
}

func (s *enrollStore) MailboxByEmail(ctx context.Context, email, chatID string) (*core.Mailbox, error) {
	return nil, core.ErrMailboxNotFound
}

func (s *enrollStore) UpdateMailboxSchedule(ctx context.Context, id string, lastSent, nextRun time.Time) error {
	return nil
}

func (s *enrollStore) UpdateMailboxFrequency(ctx context.Context, id string, freq core.Frequency, nextRun time.Time) error {
	return nil
}

func (s *enrollStore) Close() error { return nil }

func TestEnrollAllArmsEarliestRunPerUser(t *testing.T) {
	soon := time.Now().Add(time.Hour)
	later := time.Now().Add(24 * time.Hour)

	store := &enrollStore{
		users: []core.User{{ID: "u1"}, {ID: "u2"}},
		mailboxes: map[string][]core.Mailbox{
			"u1": {
				{ID: "mb1", NextSummaryTime: later},
				{ID: "mb2", NextSummaryTime: soon},
			},
			"u2": {},
		},
	}

	sched := New(func(ctx context.Context, userID string) (time.Time, error) {
		return time.Time{}, nil
	}, time.Minute, zap.NewNop())
	defer sched.Stop()

	if err := sched.EnrollAll(context.Background(), store); err != nil {
		t.Fatalf("EnrollAll: %v", err)
	}

	at, ok := sched.NextRun("u1")
	if !ok {
		t.Fatal("expected u1 to be enrolled")
	}
	if !at.Equal(soon) {
		t.Errorf("u1 armed at %v, want the earliest mailbox time %v", at, soon)
	}
	if _, ok := sched.NextRun("u2"); ok {
		t.Error("u2 has no mailboxes and must not be enrolled")
	}
}
