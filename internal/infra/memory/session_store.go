package memory

import (
	"sync"

	"school-test-bot/internal/quiz"
)

// SessionStore is the in-memory implementation of quiz.SessionStore: a
// process-wide mapping from user id to at most one active session.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*quiz.Session
	tracker  *quiz.Tracker
}

// NewSessionStore builds a store. The tracker, when set, has its per-user
// chain state discarded together with the session so no orphaned tracking
// survives teardown.
func NewSessionStore(tracker *quiz.Tracker) *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*quiz.Session),
		tracker:  tracker,
	}
}

func (s *SessionStore) Put(userID int64, session *quiz.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

func (s *SessionStore) Get(userID int64) (*quiz.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) Delete(userID int64) bool {
	s.mu.Lock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if s.tracker != nil {
		s.tracker.Discard(userID)
	}
	return ok
}

func (s *SessionStore) All() []*quiz.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*quiz.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
