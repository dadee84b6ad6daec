package quiz

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper evicts sessions older than a fixed timeout to bound memory. An
// in-flight, abandoned test is simply lost; the timeout must exceed any
// plausible single-question think time by a wide margin.
type Reaper struct {
	store    SessionStore
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewReaper(store SessionStore, timeout, interval time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		store:    store,
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "reaper").Logger(),
	}
}

// NewReaperWithClock is test-only for deterministic sweeps.
func NewReaperWithClock(store SessionStore, timeout, interval time.Duration, now func() time.Time, log zerolog.Logger) *Reaper {
	r := NewReaper(store, timeout, interval, log)
	r.now = now
	return r
}

// Start runs the periodic sweep until the context is cancelled.
// Call in a goroutine.
func (r *Reaper) Start(ctx context.Context) {
	r.log.Info().
		Dur("timeout", r.timeout).
		Dur("interval", r.interval).
		Msg("reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reaper stopped")
			return
		case <-ticker.C:
			if evicted := r.Sweep(); evicted > 0 {
				r.log.Info().Int("evicted", evicted).Msg("idle sessions evicted")
			}
		}
	}
}

// Sweep evicts every session past the timeout, regardless of progress, and
// returns the eviction count. Delete also discards message-chain tracking.
func (r *Reaper) Sweep() int {
	deadline := r.now().Add(-r.timeout)
	evicted := 0
	for _, session := range r.store.All() {
		if session.StartedAt().Before(deadline) {
			if r.store.Delete(session.UserID()) {
				evicted++
			}
		}
	}
	return evicted
}
