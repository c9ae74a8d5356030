package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/telemetry"
)

type fakeStatStore struct {
	mu      sync.Mutex
	batches [][]gateway.RequestStat
}

func (s *fakeStatStore) InsertStats(_ context.Context, stats []gateway.RequestStat) error {
	s.mu.Lock()
	s.batches = append(s.batches, stats)
	s.mu.Unlock()
	return nil
}

func (s *fakeStatStore) totalRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestStatsRecorder_BatchOnSize(t *testing.T) {
	t.Parallel()
	store := &fakeStatStore{}
	rec := NewStatsRecorder(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	// Send exactly statsBatchSize records.
	for i := range statsBatchSize {
		rec.Record(gateway.RequestStat{RequestID: fmt.Sprintf("req-%d", i)})
	}

	// Wait for batch to be flushed.
	deadline := time.After(2 * time.Second)
	for {
		if store.totalRecords() >= statsBatchSize {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("batch not flushed; got %d records", store.totalRecords())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	<-done
}

func TestStatsRecorder_FlushOnTimeout(t *testing.T) {
	t.Parallel()
	store := &fakeStatStore{}
	rec := &StatsRecorder{
		ch:    make(chan gateway.RequestStat, statsChanSize),
		store: store,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	// Send fewer than batch size.
	rec.Record(gateway.RequestStat{RequestID: "test-1"})
	rec.Record(gateway.RequestStat{RequestID: "test-2"})

	// Wait for ticker-based flush (statsFlushEvery = 5s, but test should pass).
	deadline := time.After(10 * time.Second)
	for {
		if store.totalRecords() >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout flush not triggered; got %d records", store.totalRecords())
		default:
			time.Sleep(100 * time.Millisecond)
		}
	}

	cancel()
	<-done
}

func TestStatsRecorder_DropOnFull(t *testing.T) {
	t.Parallel()
	store := &fakeStatStore{}
	rec := &StatsRecorder{
		ch:    make(chan gateway.RequestStat, 2), // tiny buffer
		store: store,
	}

	// Fill the channel.
	rec.Record(gateway.RequestStat{RequestID: "1"})
	rec.Record(gateway.RequestStat{RequestID: "2"})
	// This should be dropped silently.
	rec.Record(gateway.RequestStat{RequestID: "3"})

	if len(rec.ch) != 2 {
		t.Errorf("channel len = %d, want 2", len(rec.ch))
	}
}

func TestStatsRecorder_DrainOnShutdown(t *testing.T) {
	t.Parallel()
	store := &fakeStatStore{}
	rec := NewStatsRecorder(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	// Send some records.
	rec.Record(gateway.RequestStat{RequestID: "drain-1"})
	rec.Record(gateway.RequestStat{RequestID: "drain-2"})

	// Cancel immediately -- should drain.
	time.Sleep(50 * time.Millisecond) // let the goroutine start
	cancel()
	<-done

	if store.totalRecords() < 2 {
		t.Errorf("expected at least 2 drained records, got %d", store.totalRecords())
	}
}

func TestStatsRecorder_StampsIDAndCreatedAt(t *testing.T) {
	t.Parallel()
	store := &fakeStatStore{}
	rec := NewStatsRecorder(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	before := time.Now().UTC()
	rec.Record(gateway.RequestStat{RequestID: "no-id"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, b := range store.batches {
		for _, r := range b {
			if r.ID == "" {
				t.Error("record flushed without an ID")
			}
			// A zero CreatedAt would fall outside any summary window.
			if r.CreatedAt.IsZero() || r.CreatedAt.Before(before.Add(-time.Second)) {
				t.Errorf("record flushed with CreatedAt = %v", r.CreatedAt)
			}
		}
	}
}

func TestStatsRecorder_QueueLengthGauge(t *testing.T) {
	t.Parallel()
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	rec := NewStatsRecorder(&fakeStatStore{}, metrics)

	rec.Record(gateway.RequestStat{RequestID: "a"})
	rec.Record(gateway.RequestStat{RequestID: "b"})
	rec.Record(gateway.RequestStat{RequestID: "c"})

	if got := promtest.ToFloat64(metrics.StatsQueueLength); got != 3 {
		t.Errorf("stats_queue_length = %v, want 3", got)
	}
}
