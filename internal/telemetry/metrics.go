// Package telemetry provides observability primitives for the CVPS gateway.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheRequests    *prometheus.CounterVec
	StaleServed      prometheus.Counter
	RateLimitRejects prometheus.Counter
	StatsQueueLength prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cvps",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "cvps",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cvps",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "cvps",
			Name:                            "upstream_duration_seconds",
			Help:                            "CMS call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"resource"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cvps",
			Name:      "upstream_errors_total",
			Help:      "Total CMS errors.",
		}, []string{"resource"}),

		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cvps",
			Name:      "cache_requests_total",
			Help:      "Total cache lookups by outcome.",
		}, []string{"status"}),

		StaleServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cvps",
			Name:      "stale_served_total",
			Help:      "Total stale responses served after an upstream failure.",
		}),

		RateLimitRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cvps",
			Name:      "ratelimit_rejects_total",
			Help:      "Total rate limit rejections.",
		}),

		StatsQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cvps",
			Name:      "stats_queue_length",
			Help:      "Current number of queued request stats.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheRequests,
		m.StaleServed,
		m.RateLimitRejects,
		m.StatsQueueLength,
	)

	return m
}
