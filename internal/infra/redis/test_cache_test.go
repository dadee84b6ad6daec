package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"school-test-bot/internal/domain"
)

func TestLoadTestCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{}
	cache := NewTestCache(newClient(mr), loader, time.Minute)

	def, err := cache.LoadTest(context.Background(), "ttii7")
	if err != nil {
		t.Fatalf("load test: %v", err)
	}
	if def.Code != "ttii7" || def.Config.Title == "" {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit Redis, loader not incremented.
	again, err := cache.LoadTest(context.Background(), "ttii7")
	if err != nil {
		t.Fatalf("load test: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(again.Questions) != len(def.Questions) {
		t.Fatalf("cached definition lost questions: %+v", again)
	}
}

func TestLoadTestExpiryRefetches(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{}
	cache := NewTestCache(newClient(mr), loader, time.Minute)

	if _, err := cache.LoadTest(context.Background(), "ttii7"); err != nil {
		t.Fatalf("load test: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.LoadTest(context.Background(), "ttii7"); err != nil {
		t.Fatalf("load test: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected refetch after expiry, got %d calls", loader.calls)
	}
}

func TestLoadTestFailurePropagates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{err: domain.ErrTestNotFound}
	cache := NewTestCache(newClient(mr), loader, time.Minute)

	if _, err := cache.LoadTest(context.Background(), "nope1"); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
	// Failures must not leave a cache entry behind.
	if mr.Exists("test:content:nope1") {
		t.Fatalf("failed load left a Redis key")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type countingLoader struct {
	calls int
	err   error
}

func (l *countingLoader) LoadTest(ctx context.Context, code string) (domain.TestDefinition, error) {
	l.calls++
	if l.err != nil {
		return domain.TestDefinition{}, l.err
	}
	return domain.TestDefinition{
		Code:   code,
		Config: domain.TestConfig{Title: "Компьютер (7 класс)", MaxScore: 29},
		Questions: []domain.QuestionItem{{
			Text:   "q1",
			Points: 1,
			Options: []domain.Option{
				{Text: "a", Correct: true},
				{Text: "b"},
			},
		}},
	}, nil
}
