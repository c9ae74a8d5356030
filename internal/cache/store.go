package cache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter/v2"
)

// Store is the in-memory response cache, backed by otter's size-bounded
// W-TinyLFU cache. Expiry is checked lazily on read; expired entries are
// retained (until capacity-evicted) so stale-if-error can serve them.
type Store struct {
	cache *otter.Cache[string, Entry]

	mu   sync.Mutex
	keys map[string]map[string]struct{} // endpoint prefix -> live keys

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewStore creates a response cache bounded to maxSize entries.
func NewStore(maxSize int) (*Store, error) {
	c, err := otter.New[string, Entry](&otter.Options[string, Entry]{
		MaximumSize: maxSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{cache: c, keys: make(map[string]map[string]struct{})}, nil
}

// Get retrieves a fresh entry. Expired or absent entries count as misses.
func (s *Store) Get(key string) (Entry, bool) {
	e, ok := s.cache.GetIfPresent(key)
	if !ok || e.Expired() {
		s.misses.Add(1)
		return Entry{}, false
	}
	s.hits.Add(1)
	return e, true
}

// GetStale retrieves an entry regardless of expiry, for stale-if-error.
// It does not touch the hit/miss counters.
func (s *Store) GetStale(key string) (Entry, bool) {
	return s.cache.GetIfPresent(key)
}

// Put stores a response body under key with the given TTL, computing its
// ETag fingerprint. Returns the stored entry.
func (s *Store) Put(key string, data []byte, statusCode int, ttl time.Duration) Entry {
	now := time.Now()
	e := Entry{
		Data:       data,
		ETag:       ETagFor(data),
		StatusCode: statusCode,
		CachedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	s.cache.Set(key, e)
	s.index(key)
	return e
}

// index records key under its endpoint prefix for bulk invalidation.
func (s *Store) index(key string) {
	prefix, _, _ := strings.Cut(key, ":")
	s.mu.Lock()
	set, ok := s.keys[prefix]
	if !ok {
		set = make(map[string]struct{})
		s.keys[prefix] = set
	}
	set[key] = struct{}{}
	s.mu.Unlock()
}

// InvalidatePrefix removes every entry whose key shares the endpoint prefix.
// Used when the backend reports content changes for a resource. Returns the
// number of entries removed.
func (s *Store) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	set := s.keys[prefix]
	delete(s.keys, prefix)
	s.mu.Unlock()

	for key := range set {
		s.cache.Invalidate(key)
	}
	return len(set)
}

// Invalidate removes a single entry.
func (s *Store) Invalidate(key string) {
	s.cache.Invalidate(key)
}

// Purge removes all entries and resets the prefix index.
func (s *Store) Purge() {
	s.mu.Lock()
	s.keys = make(map[string]map[string]struct{})
	s.mu.Unlock()
	s.cache.InvalidateAll()
}

// Stats returns cumulative hit and miss counts.
func (s *Store) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

// HitRate returns the fraction of reads served from cache, or 0 before any read.
func (s *Store) HitRate() float64 {
	h, m := s.Stats()
	total := h + m
	if total == 0 {
		return 0
	}
	return float64(h) / float64(total)
}
