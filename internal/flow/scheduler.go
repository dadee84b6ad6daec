package flow

import (
	"sync"
	"time"
)

// Scheduler owns the delayed UI transitions (feedback timeouts, menu
// returns) as cancellable tasks keyed by user, so session teardown can cancel
// pending transitions instead of letting stale callbacks fire.
type Scheduler struct {
	mu     sync.Mutex
	timers map[int64]map[*time.Timer]struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[int64]map[*time.Timer]struct{})}
}

// After schedules fn for the user. The callback must still re-check session
// existence: a task may have been created before a cancellation it races with.
func (s *Scheduler) After(userID int64, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		set, ok := s.timers[userID]
		if ok {
			if _, live := set[timer]; !live {
				// Cancelled between firing and acquiring the lock.
				s.mu.Unlock()
				return
			}
			delete(set, timer)
			if len(set) == 0 {
				delete(s.timers, userID)
			}
		}
		s.mu.Unlock()
		fn()
	})

	set, ok := s.timers[userID]
	if !ok {
		set = make(map[*time.Timer]struct{})
		s.timers[userID] = set
	}
	set[timer] = struct{}{}
}

// Cancel drops every pending task for the user.
func (s *Scheduler) Cancel(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for timer := range s.timers[userID] {
		timer.Stop()
	}
	delete(s.timers, userID)
}

// Pending returns the number of live tasks for a user, for tests.
func (s *Scheduler) Pending(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[userID])
}
