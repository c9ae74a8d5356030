package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/latitude36/cvps-gateway/internal/ratelimit"
)

// LimiterJanitor periodically evicts rate-limit buckets for credentials
// that have gone idle, keeping the registry bounded.
type LimiterJanitor struct {
	registry *ratelimit.Registry
	idle     time.Duration
	every    time.Duration
}

// NewLimiterJanitor creates a janitor evicting buckets idle longer than idle,
// checking every interval.
func NewLimiterJanitor(registry *ratelimit.Registry, idle, every time.Duration) *LimiterJanitor {
	if every <= 0 {
		every = 5 * time.Minute
	}
	return &LimiterJanitor{registry: registry, idle: idle, every: every}
}

// Name returns the worker identifier.
func (j *LimiterJanitor) Name() string { return "limiter_janitor" }

// Run evicts stale limiters until ctx is cancelled.
func (j *LimiterJanitor) Run(ctx context.Context) error {
	if j.idle <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(j.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := j.registry.EvictStale(time.Now().Add(-j.idle)); n > 0 {
				slog.LogAttrs(ctx, slog.LevelDebug, "evicted idle rate limiters",
					slog.Int("count", n))
			}
		}
	}
}
