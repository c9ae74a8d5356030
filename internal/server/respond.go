package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/cache"
)

// apiError is the CVPS error envelope.
type apiError struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Code    int                 `json:"code"`
	Details map[string][]string `json:"details,omitempty"`
}

func errorBody(name, msg string, code int) apiError {
	return apiError{Error: name, Message: msg, Code: code}
}

// validationError builds a 400 envelope carrying per-field messages.
func validationError(details map[string][]string) apiError {
	return apiError{
		Error:   "ValidationError",
		Message: "invalid request parameters",
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, gateway.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrUpstream):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorName(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "AuthError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusTooManyRequests:
		return "RateLimitExceeded"
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusServiceUnavailable:
		return "UpstreamError"
	default:
		return "InternalError"
	}
}

// writeError maps a domain error onto the envelope and status code.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	writeJSON(w, status, errorBody(errorName(status), err.Error(), status))
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call. Saves 1 alloc/req.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Cache metadata headers. All already in canonical MIME form so direct map
// assignment skips canonicalization (see middleware.go:requestIDHeader).
const cacheStatusHeader = "X-Cache-Status"

// writeCached sends a cached entry with the full freshness header set and
// answers conditional requests with an empty 304.
func (s *server) writeCached(w http.ResponseWriter, r *http.Request, e cache.Entry, status cache.Status) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.CacheRequests.WithLabelValues(string(status)).Inc()
		if status == cache.StatusStale {
			s.deps.Metrics.StaleServed.Inc()
		}
	}

	ttl := int(e.TTL().Seconds())
	h := w.Header()
	h["Cache-Control"] = []string{"public, max-age=" + strconv.Itoa(ttl)}
	h["Etag"] = []string{e.ETag}
	h[cacheStatusHeader] = []string{string(status)}
	h["X-Cache-Ttl"] = []string{strconv.Itoa(ttl)}
	h["Expires"] = []string{e.ExpiresAt.UTC().Format(http.TimeFormat)}

	if cache.NotModified(r.Header.Get("If-None-Match"), e.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h["Content-Type"] = jsonCT
	w.WriteHeader(e.StatusCode)
	w.Write(e.Data)
}

// fetch goes through the single-flight cache when one is configured, and
// degrades to a direct load (always MISS) when caching is disabled.
func (s *server) fetch(r *http.Request, key string, resource string, loader cache.Loader) (cache.Entry, cache.Status, error) {
	ttl := s.deps.Policy.TTLFor(resource)
	if s.deps.Fetch != nil {
		return s.deps.Fetch.Fetch(r.Context(), key, ttl, loader)
	}
	data, err := loader(r.Context())
	if err != nil {
		return cache.Entry{}, cache.StatusMiss, err
	}
	now := time.Now()
	e := cache.Entry{
		Data:       data,
		ETag:       cache.ETagFor(data),
		StatusCode: http.StatusOK,
		CachedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	return e, cache.StatusMiss, nil
}

// serveCached is the common cache-through path for content handlers. Not-found
// results pass through uncached unless a negative TTL is configured, in which
// case the 404 envelope is stored like any other entry.
func (s *server) serveCached(w http.ResponseWriter, r *http.Request, key string, resource string, loader cache.Loader) {
	e, status, err := s.fetch(r, key, resource, loader)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) && s.deps.Fetch != nil {
			if ttl := s.deps.Policy.NegativeTTL(); ttl > 0 {
				body, _ := json.Marshal(errorBody("NotFoundError", err.Error(), http.StatusNotFound))
				e := s.deps.Fetch.Store().Put(key, body, http.StatusNotFound, ttl)
				s.writeCached(w, r, e, cache.StatusMiss)
				return
			}
		}
		s.writeError(w, err)
		return
	}
	s.writeCached(w, r, e, status)
}
