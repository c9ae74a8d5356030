package sqlite

import (
	"context"
	"strings"
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// InsertStats batch-inserts request records.
func (s *Store) InsertStats(ctx context.Context, stats []gateway.RequestStat) error {
	if len(stats) == 0 {
		return nil
	}

	// cols must match the number of columns in the INSERT below.
	// Single multi-row INSERT avoids N round-trips for large batches.
	const cols = 9
	placeholders := make([]string, len(stats))
	args := make([]any, 0, len(stats)*cols)

	for i, r := range stats {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			r.ID, r.KeyPrefix, r.SiteID, r.Endpoint, r.CacheStatus,
			r.StatusCode, r.LatencyMs, r.RequestID,
			r.CreatedAt.UTC().Format(time.RFC3339),
		)
	}

	query := `INSERT INTO request_stats
		(id, key_prefix, site_id, endpoint, cache_status,
		 status_code, latency_ms, request_id, created_at)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := s.write.ExecContext(ctx, query, args...)
	return err
}

// Summary aggregates records created at or after since.
func (s *Store) Summary(ctx context.Context, since time.Time) (gateway.StatSummary, error) {
	var sum gateway.StatSummary
	var avg *float64
	err := s.read.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(cache_status = 'HIT'), 0),
		       COALESCE(SUM(cache_status = 'MISS'), 0),
		       COALESCE(SUM(cache_status = 'STALE'), 0),
		       COALESCE(SUM(status_code >= 500), 0),
		       AVG(latency_ms)
		FROM request_stats WHERE created_at >= ?`,
		since.UTC().Format(time.RFC3339),
	).Scan(&sum.TotalRequests, &sum.CacheHits, &sum.CacheMisses,
		&sum.StaleServed, &sum.ErrorCount, &avg)
	if err != nil {
		return gateway.StatSummary{}, err
	}
	if avg != nil {
		sum.AvgLatencyMs = *avg
	}
	return sum, nil
}
