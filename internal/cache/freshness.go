package cache

import "time"

// Resource names used for per-resource TTL lookup.
const (
	ResourceProducts   = "products"
	ResourceBlog       = "blog"
	ResourceCategories = "categories"
	ResourceGalleries  = "galleries"
	ResourceHomepage   = "homepage"
	ResourceNewsletter = "newsletter"
)

// Policy maps resource types to TTLs and answers conditional-request checks.
// It is immutable after construction.
type Policy struct {
	defaultTTL  time.Duration
	perResource map[string]time.Duration
	negativeTTL time.Duration
}

// NewPolicy builds a freshness policy. perResource overrides defaultTTL for
// named resources; negativeTTL of 0 disables negative caching of not-found
// results.
func NewPolicy(defaultTTL time.Duration, perResource map[string]time.Duration, negativeTTL time.Duration) *Policy {
	m := make(map[string]time.Duration, len(perResource))
	for k, v := range perResource {
		m[k] = v
	}
	return &Policy{defaultTTL: defaultTTL, perResource: m, negativeTTL: negativeTTL}
}

// TTLFor returns the TTL for a resource type.
func (p *Policy) TTLFor(resource string) time.Duration {
	if ttl, ok := p.perResource[resource]; ok {
		return ttl
	}
	return p.defaultTTL
}

// NegativeTTL returns the not-found caching TTL; 0 means disabled.
func (p *Policy) NegativeTTL() time.Duration { return p.negativeTTL }

// NotModified reports whether a conditional request's If-None-Match value
// matches the entry's fingerprint, meaning an empty 304 can be returned
// instead of re-transmitting the payload.
func NotModified(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	return ifNoneMatch == etag
}
