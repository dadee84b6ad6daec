package memory

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"school-test-bot/internal/domain"
)

// TestLoader fetches test content from a backing source (HTTP site, Redis).
type TestLoader interface {
	LoadTest(ctx context.Context, code string) (domain.TestDefinition, error)
}

// TestCache memoizes successful loads by code for the life of the process.
// A cached entry is never invalidated or refreshed; singleflight guarantees
// at most one fetch per distinct code even under concurrent requests.
type TestCache struct {
	loader TestLoader
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]domain.TestDefinition
}

func NewTestCache(loader TestLoader) *TestCache {
	return &TestCache{
		loader: loader,
		cache:  make(map[string]domain.TestDefinition),
	}
}

func (c *TestCache) LoadTest(ctx context.Context, code string) (domain.TestDefinition, error) {
	c.mu.RLock()
	if def, ok := c.cache[code]; ok {
		c.mu.RUnlock()
		return def, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(code, func() (interface{}, error) {
		c.mu.RLock()
		if def, ok := c.cache[code]; ok {
			c.mu.RUnlock()
			return def, nil
		}
		c.mu.RUnlock()

		def, err := c.loader.LoadTest(ctx, code)
		if err != nil {
			// Failed loads are not cached; the caller re-requests.
			return domain.TestDefinition{}, err
		}

		c.mu.Lock()
		c.cache[code] = def
		c.mu.Unlock()
		return def, nil
	})
	if err != nil {
		return domain.TestDefinition{}, err
	}
	return result.(domain.TestDefinition), nil
}

// Len returns the number of cached tests, for the admin surface.
func (c *TestCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Cached returns the cached definitions, for the admin surface.
func (c *TestCache) Cached() []domain.TestDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.TestDefinition, 0, len(c.cache))
	for _, def := range c.cache {
		out = append(out, def)
	}
	return out
}
