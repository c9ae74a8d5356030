package cache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fetches the upstream bytes for a cache key.
type Loader func(ctx context.Context) ([]byte, error)

// RefreshJob asks the background refresh worker to repopulate a key whose
// stale entry was served after an upstream failure.
type RefreshJob struct {
	Key  string
	TTL  time.Duration
	Load Loader
}

// FetchGroup wraps a Store with single-flight miss coalescing: concurrent
// misses on the same key trigger exactly one upstream load whose result is
// broadcast to every waiter.
type FetchGroup struct {
	store   *Store
	group   singleflight.Group
	refresh chan<- RefreshJob // nil disables background refresh
}

// NewFetchGroup creates a FetchGroup over store. refresh may be nil; when
// set, stale-if-error serves enqueue a RefreshJob onto it (non-blocking).
func NewFetchGroup(store *Store, refresh chan<- RefreshJob) *FetchGroup {
	return &FetchGroup{store: store, refresh: refresh}
}

// Store exposes the underlying cache store.
func (f *FetchGroup) Store() *Store { return f.store }

// loadResult carries a completed load across the singleflight boundary.
type loadResult struct {
	entry Entry
}

// Fetch returns the cached entry for key, loading it through loader on a
// miss. The load runs on a context detached from the caller: a cancelled
// caller abandons its wait, but followers sharing the flight still receive
// the result.
//
// On loader failure with a usable (possibly expired) entry present,
// stale-if-error applies: the stale entry is returned with StatusStale and a
// background refresh is scheduled. The error is surfaced only when no cached
// entry exists at all.
func (f *FetchGroup) Fetch(ctx context.Context, key string, ttl time.Duration, loader Loader) (Entry, Status, error) {
	if e, ok := f.store.Get(key); ok {
		return e, StatusHit, nil
	}

	ch := f.group.DoChan(key, func() (any, error) {
		// Detach from the first caller so its cancellation does not starve
		// the other waiters.
		data, err := loader(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		e := f.store.Put(key, data, 200, ttl)
		return loadResult{entry: e}, nil
	})

	select {
	case <-ctx.Done():
		return Entry{}, StatusMiss, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return f.staleOrError(key, ttl, loader, res.Err)
		}
		return res.Val.(loadResult).entry, StatusMiss, nil
	}
}

// staleOrError resolves a failed load: serve the stale entry if one exists
// and queue a refresh, otherwise surface the load error.
func (f *FetchGroup) staleOrError(key string, ttl time.Duration, loader Loader, loadErr error) (Entry, Status, error) {
	stale, ok := f.store.GetStale(key)
	if !ok {
		return Entry{}, StatusMiss, loadErr
	}

	slog.Warn("serving stale cache entry after upstream failure",
		"key", key, "error", loadErr)

	if f.refresh != nil {
		select {
		case f.refresh <- RefreshJob{Key: key, TTL: ttl, Load: loader}:
		default:
			slog.Warn("refresh queue full, dropping job", "key", key)
		}
	}
	return stale, StatusStale, nil
}
