// Package cache provides the response cache for the gateway: deterministic
// key derivation, a TTL-bounded store with single-flight miss coalescing,
// and freshness rules (per-resource TTLs, ETags, stale-if-error).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status reports how a response was produced relative to the cache.
type Status string

// Cache statuses surfaced in the X-Cache-Status header.
const (
	StatusHit   Status = "HIT"
	StatusMiss  Status = "MISS"
	StatusStale Status = "STALE"
)

// Entry is one cached response. Entries are created on miss, read many times
// until expiry, replaced whole on refresh or invalidation, never partially
// updated.
type Entry struct {
	Data       []byte
	ETag       string
	StatusCode int
	CachedAt   time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry is past its TTL.
func (e Entry) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the remaining time until expiry, or 0 if already expired.
func (e Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// ETagFor computes the content fingerprint for a response body, in the
// quoted form the ETag header requires.
func ETagFor(data []byte) string {
	h := sha256.Sum256(data)
	return `"` + hex.EncodeToString(h[:16]) + `"`
}
