package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"school-test-bot/internal/content"
	"school-test-bot/internal/domain"
	"school-test-bot/internal/flow"
	"school-test-bot/internal/infra/memory"
	"school-test-bot/internal/quiz"
)

func TestStatsSnapshot(t *testing.T) {
	gateway := NewGateway(zerolog.Nop())
	tracker := quiz.NewTracker(gateway, zerolog.Nop())
	store := memory.NewSessionStore(tracker)
	engine := quiz.NewEngine(store, zerolog.Nop())

	def := domain.TestDefinition{
		Code:   "ttii7",
		Config: domain.TestConfig{Title: "Демо", TotalQuestions: 1, TotalProblems: 1, MaxScore: 4},
		Questions: []domain.QuestionItem{{
			Text:   "q1",
			Points: 1,
			Options: []domain.Option{{Text: "a", Correct: true}, {Text: "b"}},
		}},
		Problems: []domain.QuestionItem{{
			Text:   "p1",
			Points: 3,
			Options: []domain.Option{{Text: "a"}, {Text: "b", Correct: true}},
		}},
	}
	engine.CreateSession(1, def, domain.Student{ID: 1, LastName: "Иванов", FirstName: "Иван", Class: "7"})

	cache := memory.NewTestCache(&staticLoader{def: def})
	if _, err := cache.LoadTest(context.Background(), "ttii7"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	coordinator := flow.NewCoordinator(flow.Deps{
		Engine:    engine,
		Tracker:   tracker,
		Tests:     cache,
		Catalog:   content.DefaultCatalog(),
		Roster:    memory.NewRoster(nil),
		Sink:      flow.NewLogSink(zerolog.Nop()),
		Transport: gateway,
		Timing:    flow.DefaultTiming(),
		Log:       zerolog.Nop(),
	})
	handler := NewAdminHandler(engine, coordinator, cache)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	handler.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ActiveSessions != 1 || resp.CachedTests != 1 {
		t.Fatalf("unexpected counters: %+v", resp)
	}
	if len(resp.Sessions) != 1 || resp.Sessions[0].UserID != 1 || resp.Sessions[0].Total != 2 {
		t.Fatalf("unexpected sessions: %+v", resp.Sessions)
	}
	if len(resp.Tests) != 1 || resp.Tests[0].Code != "ttii7" || resp.Tests[0].Questions != 1 {
		t.Fatalf("unexpected tests: %+v", resp.Tests)
	}
}

func TestStatsRejectsNonGet(t *testing.T) {
	handler := NewAdminHandler(nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	handler.Stats(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

type staticLoader struct{ def domain.TestDefinition }

func (l *staticLoader) LoadTest(_ context.Context, code string) (domain.TestDefinition, error) {
	return l.def, nil
}
