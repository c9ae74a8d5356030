package testutil

import (
	"context"
	"sync"
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// FakeStatStore is an in-memory implementation of storage.StatStore.
type FakeStatStore struct {
	mu      sync.Mutex
	stats   []gateway.RequestStat
	pingErr error
}

// NewFakeStatStore returns an empty stat store.
func NewFakeStatStore() *FakeStatStore {
	return &FakeStatStore{}
}

// FailPing makes subsequent Ping calls return err.
func (s *FakeStatStore) FailPing(err error) {
	s.mu.Lock()
	s.pingErr = err
	s.mu.Unlock()
}

// InsertStats appends the batch.
func (s *FakeStatStore) InsertStats(_ context.Context, stats []gateway.RequestStat) error {
	s.mu.Lock()
	s.stats = append(s.stats, stats...)
	s.mu.Unlock()
	return nil
}

// Stats returns a copy of everything inserted so far.
func (s *FakeStatStore) Stats() []gateway.RequestStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gateway.RequestStat, len(s.stats))
	copy(out, s.stats)
	return out
}

// Summary aggregates inserted records at or after since.
func (s *FakeStatStore) Summary(_ context.Context, since time.Time) (gateway.StatSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum gateway.StatSummary
	var latency int64
	for _, st := range s.stats {
		if st.CreatedAt.Before(since) {
			continue
		}
		sum.TotalRequests++
		latency += int64(st.LatencyMs)
		switch st.CacheStatus {
		case "HIT":
			sum.CacheHits++
		case "MISS":
			sum.CacheMisses++
		case "STALE":
			sum.StaleServed++
		}
		if st.StatusCode >= 500 {
			sum.ErrorCount++
		}
	}
	if sum.TotalRequests > 0 {
		sum.AvgLatencyMs = float64(latency) / float64(sum.TotalRequests)
	}
	return sum, nil
}

// Ping reports the configured ping error.
func (s *FakeStatStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

// Close is a no-op.
func (s *FakeStatStore) Close() error { return nil }
