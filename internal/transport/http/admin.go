package http

import (
	"encoding/json"
	"net/http"
	"time"

	"school-test-bot/internal/domain"
	"school-test-bot/internal/flow"
	"school-test-bot/internal/quiz"
)

// TestCacheInfo is what the admin surface needs from the content cache.
type TestCacheInfo interface {
	Len() int
	Cached() []domain.TestDefinition
}

// AdminHandler serves read-only statistics snapshots for the admin console.
type AdminHandler struct {
	engine      *quiz.Engine
	coordinator *flow.Coordinator
	cache       TestCacheInfo
	startedAt   time.Time
}

func NewAdminHandler(engine *quiz.Engine, coordinator *flow.Coordinator, cache TestCacheInfo) *AdminHandler {
	return &AdminHandler{
		engine:      engine,
		coordinator: coordinator,
		cache:       cache,
		startedAt:   time.Now(),
	}
}

type cachedTestView struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	Questions int    `json:"questions"`
	Problems  int    `json:"problems"`
	MaxScore  int    `json:"maxScore"`
}

type statsResponse struct {
	ActiveSessions     int                `json:"activeSessions"`
	AuthorizedStudents int                `json:"authorizedStudents"`
	CachedTests        int                `json:"cachedTests"`
	UptimeSeconds      int64              `json:"uptimeSeconds"`
	Sessions           []quiz.SessionInfo `json:"sessions"`
	Tests              []cachedTestView   `json:"tests"`
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tests := make([]cachedTestView, 0)
	for _, def := range h.cache.Cached() {
		tests = append(tests, cachedTestView{
			Code:      def.Code,
			Title:     def.Config.Title,
			Questions: len(def.Questions),
			Problems:  len(def.Problems),
			MaxScore:  def.Config.MaxScore,
		})
	}

	resp := statsResponse{
		ActiveSessions:     h.engine.SessionCount(),
		AuthorizedStudents: h.coordinator.StudentCount(),
		CachedTests:        h.cache.Len(),
		UptimeSeconds:      int64(time.Since(h.startedAt) / time.Second),
		Sessions:           h.engine.Snapshot(),
		Tests:              tests,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
