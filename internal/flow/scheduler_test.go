package flow

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAfterFires(t *testing.T) {
	s := NewScheduler()
	var fired int32
	s.After(1, time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	waitFor(t, "task to fire", func() bool { return atomic.LoadInt32(&fired) == 1 })
	if s.Pending(1) != 0 {
		t.Fatalf("expected no pending tasks after firing, got %d", s.Pending(1))
	}
}

func TestCancelStopsPendingTasks(t *testing.T) {
	s := NewScheduler()
	var fired int32
	s.After(1, 20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.After(1, 20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	if s.Pending(1) != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", s.Pending(1))
	}

	s.Cancel(1)
	if s.Pending(1) != 0 {
		t.Fatalf("expected no pending tasks after cancel, got %d", s.Pending(1))
	}
	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatalf("cancelled tasks fired %d times", fired)
	}
}

func TestCancelIsPerUser(t *testing.T) {
	s := NewScheduler()
	var fired int32
	s.After(1, 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.After(2, 5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	s.Cancel(1)
	waitFor(t, "other user's task", func() bool { return atomic.LoadInt32(&fired) == 1 })
	time.Sleep(10 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected only user 2's task to fire, got %d", fired)
	}
}
