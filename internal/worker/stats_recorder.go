package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/telemetry"
)

const (
	statsChanSize   = 1000
	statsBatchSize  = 100
	statsFlushEvery = 5 * time.Second
	statsDrainTime  = 30 * time.Second
)

// StatStore is the persistence interface consumed by StatsRecorder.
type StatStore interface {
	InsertStats(ctx context.Context, stats []gateway.RequestStat) error
}

// StatsRecorder buffers request records and batch-flushes them to the store.
// Records are dropped if the channel is full (back-pressure on slow DB).
type StatsRecorder struct {
	ch      chan gateway.RequestStat
	store   StatStore
	metrics *telemetry.Metrics
}

// NewStatsRecorder creates a StatsRecorder backed by store. metrics may be nil.
func NewStatsRecorder(store StatStore, metrics *telemetry.Metrics) *StatsRecorder {
	return &StatsRecorder{
		ch:      make(chan gateway.RequestStat, statsChanSize),
		store:   store,
		metrics: metrics,
	}
}

// Name returns the worker identifier.
func (s *StatsRecorder) Name() string { return "stats_recorder" }

// Record enqueues a request record. It never blocks; drops on full channel.
func (s *StatsRecorder) Record(r gateway.RequestStat) {
	select {
	case s.ch <- r:
	default:
		slog.Warn("request stat dropped, channel full")
	}
	if s.metrics != nil {
		s.metrics.StatsQueueLength.Set(float64(len(s.ch)))
	}
}

// Run processes records until ctx is cancelled, then drains remaining records.
func (s *StatsRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(statsFlushEvery)
	defer ticker.Stop()

	buf := make([]gateway.RequestStat, 0, statsBatchSize)

	for {
		select {
		case r := <-s.ch:
			buf = append(buf, r)
			if len(buf) >= statsBatchSize {
				s.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ticker.C:
			if len(buf) > 0 {
				s.flush(ctx, buf)
				buf = buf[:0]
			}

		case <-ctx.Done():
			// Drain remaining records with a timeout.
			s.drain(buf)
			return nil
		}
	}
}

func (s *StatsRecorder) drain(buf []gateway.RequestStat) {
	ctx, cancel := context.WithTimeout(context.Background(), statsDrainTime)
	defer cancel()

	for {
		select {
		case r := <-s.ch:
			buf = append(buf, r)
			if len(buf) >= statsBatchSize {
				s.flush(ctx, buf)
				buf = buf[:0]
			}
		default:
			// Channel empty, flush remaining.
			if len(buf) > 0 {
				s.flush(ctx, buf)
			}
			return
		}
	}
}

func (s *StatsRecorder) flush(ctx context.Context, buf []gateway.RequestStat) {
	// Copy to avoid aliasing the caller's slice.
	batch := make([]gateway.RequestStat, len(buf))
	copy(batch, buf)

	// Assign IDs and timestamps off the hot path; callers leave both empty.
	now := time.Now().UTC()
	for i := range batch {
		if batch[i].ID == "" {
			batch[i].ID = uuid.Must(uuid.NewV7()).String()
		}
		if batch[i].CreatedAt.IsZero() {
			batch[i].CreatedAt = now
		}
	}

	if s.metrics != nil {
		s.metrics.StatsQueueLength.Set(float64(len(s.ch)))
	}

	if err := s.store.InsertStats(ctx, batch); err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "stats flush failed",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
}
