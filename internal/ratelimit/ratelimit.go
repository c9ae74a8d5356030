// Package ratelimit implements per-credential request rate limiting with
// lazy-refill token buckets.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Limits holds the effective bucket settings for a credential pair.
// Capacity 0 means unlimited.
type Limits struct {
	Capacity     int64
	RefillPerMin int64
}

// Result is the outcome of an admission check.
type Result struct {
	Allowed           bool
	Limit             int64
	Remaining         int64
	ResetAt           int64 // epoch seconds when the consumed cost is available again
	RetryAfterSeconds float64
}

// Bucket is a token bucket with lazy refill (no background goroutine).
type Bucket struct {
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastFill time.Time
}

func newBucket(capacity, refillPerMin int64) *Bucket {
	return &Bucket{
		tokens:   float64(capacity),
		max:      float64(capacity),
		rate:     float64(refillPerMin) / 60.0,
		lastFill: time.Now(),
	}
}

// refill adds tokens based on elapsed time since last refill.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.max, b.tokens+elapsed*b.rate)
	b.lastFill = now
}

// tryConsume attempts to consume n tokens. Returns remaining and whether allowed.
func (b *Bucket) tryConsume(n float64, now time.Time) (remaining int64, allowed bool) {
	b.refill(now)
	if b.tokens >= n {
		b.tokens -= n
		return int64(b.tokens), true
	}
	return int64(b.tokens), false
}

// retryAfter returns seconds until n tokens are available.
func (b *Bucket) retryAfter(n float64) float64 {
	if b.tokens >= n {
		return 0
	}
	if b.rate <= 0 {
		return math.Inf(1)
	}
	return (n - b.tokens) / b.rate
}

// Limiter guards a single credential pair's bucket.
type Limiter struct {
	mu       sync.Mutex
	bucket   *Bucket // nil if unlimited
	limits   Limits
	lastUsed time.Time
}

func newLimiter(limits Limits) *Limiter {
	l := &Limiter{limits: limits, lastUsed: time.Now()}
	if limits.Capacity > 0 {
		l.bucket = newBucket(limits.Capacity, limits.RefillPerMin)
	}
	return l
}

// Admit consumes cost tokens and reports the bucket state for response
// headers. cost below 1 counts as 1.
func (l *Limiter) Admit(cost int64) Result {
	if cost < 1 {
		cost = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.lastUsed = now

	if l.bucket == nil {
		return Result{Allowed: true}
	}

	remaining, ok := l.bucket.tryConsume(float64(cost), now)
	retry := l.bucket.retryAfter(float64(cost))
	res := Result{
		Allowed:   ok,
		Limit:     l.limits.Capacity,
		Remaining: remaining,
		ResetAt:   resetAt(now, retry),
	}
	if !ok {
		res.RetryAfterSeconds = retry
	}
	return res
}

// Peek reports the bucket state without consuming.
func (l *Limiter) Peek() Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bucket == nil {
		return Result{Allowed: true}
	}
	now := time.Now()
	l.bucket.refill(now)
	return Result{
		Allowed:   true,
		Limit:     l.limits.Capacity,
		Remaining: int64(l.bucket.tokens),
		ResetAt:   resetAt(now, l.bucket.retryAfter(1)),
	}
}

func resetAt(now time.Time, retryAfter float64) int64 {
	if retryAfter <= 0 {
		return now.Unix()
	}
	if math.IsInf(retryAfter, 1) {
		retryAfter = float64(24 * time.Hour / time.Second)
	}
	return now.Add(time.Duration(math.Ceil(retryAfter)) * time.Second).Unix()
}

// Registry manages per-credential Limiters keyed by "api_key:site_id".
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewRegistry creates a new rate limiter registry.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
	}
}

// GetOrCreate returns the limiter for key, creating one if needed.
// If the key's limits have changed, a new limiter is created.
func (r *Registry) GetOrCreate(key string, limits Limits) *Limiter {
	r.mu.RLock()
	l, ok := r.limiters[key]
	r.mu.RUnlock()
	if ok && l.limits == limits {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check after acquiring write lock.
	if l, ok := r.limiters[key]; ok && l.limits == limits {
		return l
	}
	l = newLimiter(limits)
	r.limiters[key] = l
	return l
}

// Admit is the registry-level entry point: resolve the key's limiter and
// consume cost from it.
func (r *Registry) Admit(key string, limits Limits, cost int64) Result {
	return r.GetOrCreate(key, limits).Admit(cost)
}

// Len returns the number of tracked limiters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

// EvictStale removes limiters not used since cutoff.
func (r *Registry) EvictStale(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for k, l := range r.limiters {
		l.mu.Lock()
		stale := l.lastUsed.Before(cutoff)
		l.mu.Unlock()
		if stale {
			delete(r.limiters, k)
			evicted++
		}
	}
	return evicted
}
