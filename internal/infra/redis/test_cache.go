package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"school-test-bot/internal/domain"
)

// TestLoader fetches test content from a backing source (the HTTP site).
type TestLoader interface {
	LoadTest(ctx context.Context, code string) (domain.TestDefinition, error)
}

// TestCache keeps whole test definitions in Redis as JSON values, one key per
// code, and falls back to the loader on a miss. Sessions need the full
// question text, so the whole definition is stored rather than a derived
// answer index. A zero TTL keeps entries forever.
type TestCache struct {
	client *redis.Client
	loader TestLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewTestCache(client *redis.Client, loader TestLoader, ttl time.Duration) *TestCache {
	return &TestCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *TestCache) LoadTest(ctx context.Context, code string) (domain.TestDefinition, error) {
	key := c.key(code)

	if def, ok := c.fromCache(ctx, key); ok {
		return def, nil
	}

	result, err, _ := c.sf.Do(code, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if def, ok := c.fromCache(ctx, key); ok {
			return def, nil
		}

		def, err := c.loader.LoadTest(ctx, code)
		if err != nil {
			return domain.TestDefinition{}, err
		}

		raw, err := json.Marshal(def)
		if err != nil {
			return domain.TestDefinition{}, fmt.Errorf("marshal test %q: %w", code, err)
		}
		// Best-effort write: a cache failure must not fail the load.
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		return def, nil
	})
	if err != nil {
		return domain.TestDefinition{}, err
	}
	return result.(domain.TestDefinition), nil
}

func (c *TestCache) fromCache(ctx context.Context, key string) (domain.TestDefinition, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.TestDefinition{}, false
	}
	var def domain.TestDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.TestDefinition{}, false
	}
	return def, true
}

func (c *TestCache) key(code string) string {
	return "test:content:" + code
}
