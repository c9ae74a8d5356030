// Package storage defines persistence interfaces for the gateway.
package storage

import (
	"context"
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// StatStore persists served-request records for the health and stats
// surfaces. Implementations must tolerate batch inserts off the request path.
type StatStore interface {
	InsertStats(ctx context.Context, stats []gateway.RequestStat) error
	Summary(ctx context.Context, since time.Time) (gateway.StatSummary, error)
	Ping(ctx context.Context) error
	Close() error
}
