// Package server implements the HTTP transport layer for the CVPS gateway.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	gateway "github.com/latitude36/cvps-gateway/internal"
	"github.com/latitude36/cvps-gateway/internal/cache"
	"github.com/latitude36/cvps-gateway/internal/catalog"
	"github.com/latitude36/cvps-gateway/internal/ratelimit"
	"github.com/latitude36/cvps-gateway/internal/storage"
	"github.com/latitude36/cvps-gateway/internal/telemetry"
	"github.com/latitude36/cvps-gateway/internal/upstream"
)

// StatsRecorder records served-request stats asynchronously.
type StatsRecorder interface {
	Record(gateway.RequestStat)
}

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Auth           gateway.Authenticator
	CMS            *upstream.Client
	Engine         *catalog.Engine
	Fetch          *cache.FetchGroup   // nil = cache disabled, every request loads
	Policy         *cache.Policy
	RateLimiter    *ratelimit.Registry // nil = no rate limiting
	Limits         ratelimit.Limits
	Stats          StatsRecorder       // nil = no stats recording
	StatStore      storage.StatStore   // nil = health reports database disconnected
	Metrics        *telemetry.Metrics  // nil = no metrics middleware
	MetricsHandler http.Handler        // nil = /metrics not mounted
	MaxPerPage     int                 // upper bound for per_page; 0 = 100
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	if deps.MaxPerPage <= 0 {
		deps.MaxPerPage = 100
	}
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints (no auth)
	r.Get("/health", s.handleHealth)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Storefront API (auth + rate limit)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.observe)
		r.Use(s.rateLimit)
		r.Get("/homepage", s.handleHomepage)
		r.Get("/products", s.handleProducts)
		r.Get("/products/search", s.handleProductSearch)
		r.Get("/products/{idOrSlug}", s.handleProduct)
		r.Get("/blog", s.handleBlogList)
		r.Get("/blog/{idOrSlug}", s.handleBlogPost)
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/{idOrSlug}", s.handleCategory)
		r.Get("/galleries", s.handleGalleries)
		r.Get("/galleries/{slug}", s.handleGallery)
		r.Get("/newsletter", s.handleNewsletter)
	})

	return r
}

type server struct {
	deps Deps
}
