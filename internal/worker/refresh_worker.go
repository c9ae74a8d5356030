package worker

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/latitude36/cvps-gateway/internal/cache"
)

const (
	refreshAttempts = 3
	refreshBackoff  = 500 * time.Millisecond
)

// RefreshWorker repopulates cache entries whose stale copies were served
// after an upstream failure. Jobs arrive from the cache layer; each one
// retries the original load with backoff before giving up.
type RefreshWorker struct {
	jobs  <-chan cache.RefreshJob
	store *cache.Store
}

// NewRefreshWorker creates a RefreshWorker consuming jobs into store.
func NewRefreshWorker(jobs <-chan cache.RefreshJob, store *cache.Store) *RefreshWorker {
	return &RefreshWorker{jobs: jobs, store: store}
}

// Name returns the worker identifier.
func (w *RefreshWorker) Name() string { return "refresh_worker" }

// Run processes refresh jobs until ctx is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-w.jobs:
			w.refresh(ctx, job)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context, job cache.RefreshJob) {
	backoff := refreshBackoff
	for attempt := 1; attempt <= refreshAttempts; attempt++ {
		data, err := job.Load(ctx)
		if err == nil {
			w.store.Put(job.Key, data, 200, job.TTL)
			slog.LogAttrs(ctx, slog.LevelInfo, "stale entry refreshed",
				slog.String("key", job.Key),
				slog.Int("attempt", attempt))
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt == refreshAttempts {
			slog.LogAttrs(ctx, slog.LevelWarn, "stale refresh gave up",
				slog.String("key", job.Key),
				slog.String("error", err.Error()))
			return
		}

		sleep := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
		backoff *= 2
	}
}
