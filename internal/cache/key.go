package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
)

// Params holds the query parameters that shape a cached response. Only
// non-default values should be set; absent parameters are omitted from the
// derived key so logically equivalent requests collide onto one entry.
type Params map[string]any

// NewParams returns an empty parameter set.
func NewParams() Params { return Params{} }

// SetString records a string parameter, skipping empty values.
func (p Params) SetString(key, val string) Params {
	if val != "" {
		p[key] = val
	}
	return p
}

// SetInt records an integer parameter, skipping zero.
func (p Params) SetInt(key string, val int) Params {
	if val != 0 {
		p[key] = val
	}
	return p
}

// SetFloat records a float parameter, skipping nil.
func (p Params) SetFloat(key string, val *float64) Params {
	if val != nil {
		p[key] = *val
	}
	return p
}

// SetList records a list parameter sorted and deduplicated, skipping empty
// lists. Element order in the request must not affect the derived key.
func (p Params) SetList(key string, vals []string) Params {
	if len(vals) == 0 {
		return p
	}
	sorted := make([]string, len(vals))
	copy(sorted, vals)
	sort.Strings(sorted)
	deduped := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			deduped = append(deduped, v)
		}
	}
	if len(deduped) > 0 {
		p[key] = deduped
	}
	return p
}

// Key derives the deterministic cache key for an endpoint and its parameters.
// The endpoint survives as a plaintext prefix so whole endpoints can be
// invalidated by prefix match; the parameter part is a SHA-256 over stable
// JSON with lexicographically sorted keys.
func Key(endpoint string, params Params) string {
	if len(params) == 0 {
		return endpoint
	}
	h := sha256.Sum256(stableJSON(params))
	return endpoint + ":" + hex.EncodeToString(h[:])
}

// stableJSON serializes a parameter map with sorted keys. Struct-free maps
// marshal in non-deterministic key order, which fragmented cache keys; the
// ordered key/value array avoids that.
func stableJSON(m Params) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}, len(keys))
	for i, k := range keys {
		ordered[i].Key = k
		ordered[i].Value = normalize(m[k])
	}

	data, _ := json.Marshal(ordered)
	return data
}

// normalize collapses numeric types to a canonical representation so that
// the same logical value always serializes identically.
func normalize(v any) any {
	switch n := v.(type) {
	case float64:
		// Trim float noise: 10 and 10.0 must produce the same key.
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return v
	}
}
