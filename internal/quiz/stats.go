package quiz

import (
	"sort"
	"time"

	"school-test-bot/internal/domain"
)

// SessionInfo is a read-only view of one session for the admin surface.
type SessionInfo struct {
	UserID    int64          `json:"userId"`
	Student   domain.Student `json:"student"`
	TestTitle string         `json:"testTitle"`
	Answered  int            `json:"answered"`
	Total     int            `json:"total"`
	Completed bool           `json:"completed"`
	StartedAt time.Time      `json:"startedAt"`
}

// Snapshot returns per-session progress ordered by start time, oldest first.
// No mutation capability is implied.
func (e *Engine) Snapshot() []SessionInfo {
	sessions := e.store.All()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		answered, total := s.Progress()
		infos = append(infos, SessionInfo{
			UserID:    s.UserID(),
			Student:   s.Student(),
			TestTitle: s.TestTitle(),
			Answered:  answered,
			Total:     total,
			Completed: s.Completed(),
			StartedAt: s.StartedAt(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	return e.store.Len()
}
