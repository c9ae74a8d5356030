package server

import (
	"context"
	"net/http"
	"time"

	gateway "github.com/latitude36/cvps-gateway/internal"
)

// contentRoutes counts the authenticated content endpoints reported on health.
const contentRoutes = 11

var featureList = []string{
	"caching",
	"etag",
	"faceted_search",
	"rate_limiting",
	"stale_if_error",
}

type cacheHealth struct {
	Enabled bool    `json:"enabled"`
	Type    string  `json:"type"`
	HitRate float64 `json:"hit_rate"`
}

type healthResponse struct {
	Status             string               `json:"status"`
	Service            string               `json:"service"`
	Database           string               `json:"database"`
	Cache              cacheHealth          `json:"cache"`
	Version            string               `json:"version"`
	EndpointsAvailable int                  `json:"endpoints_available"`
	Features           []string             `json:"features"`
	Stats              *gateway.StatSummary `json:"stats,omitempty"`
	Timestamp          time.Time            `json:"timestamp"`
}

const healthProbeTimeout = 2 * time.Second

// handleHealth reports service, database, and cache condition. A failed
// database probe degrades status to unhealthy with a 503 so load balancers
// rotate the instance out.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:             "healthy",
		Service:            gateway.ServiceName,
		Database:           "disconnected",
		Version:            gateway.Version,
		EndpointsAvailable: contentRoutes,
		Features:           featureList,
		Timestamp:          time.Now().UTC(),
	}

	if s.deps.Fetch != nil {
		resp.Cache = cacheHealth{
			Enabled: true,
			Type:    "memory",
			HitRate: s.deps.Fetch.Store().HitRate(),
		}
	} else {
		resp.Cache = cacheHealth{Type: "none"}
	}

	status := http.StatusOK
	if s.deps.StatStore != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()
		if err := s.deps.StatStore.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "connected"
			if sum, err := s.deps.StatStore.Summary(ctx, time.Now().Add(-24*time.Hour)); err == nil {
				resp.Stats = &sum
			}
		}
	}

	writeJSON(w, status, resp)
}
