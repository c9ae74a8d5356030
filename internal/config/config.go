// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level gateway configuration. It is built once per process
// and passed explicitly to every component; there is no ambient global lookup.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Upstream    UpstreamConfig  `yaml:"upstream"`
	Database    DatabaseConfig  `yaml:"database"`
	Credentials []Credential    `yaml:"credentials"`
	RateLimits  RateLimitConfig `yaml:"rate_limits"`
	Cache       CacheConfig     `yaml:"cache"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig holds CMS backend settings.
type UpstreamConfig struct {
	APIBaseURL    string        `yaml:"api_base_url"`
	MediaBaseURL  string        `yaml:"media_base_url"`
	APIKey        string        `yaml:"api_key"`
	SiteID        string        `yaml:"site_id"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
}

// DatabaseConfig holds SQLite settings for the request-stats store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // file path or ":memory:"
}

// Credential is an accepted X-API-Key / X-Site-ID pair.
type Credential struct {
	APIKey string `yaml:"api_key"`
	SiteID string `yaml:"site_id"`
}

// RateLimitConfig holds token bucket settings per credential pair.
type RateLimitConfig struct {
	Capacity     int64         `yaml:"capacity"`       // bucket size (0 = unlimited)
	RefillPerMin int64         `yaml:"refill_per_min"` // tokens restored per minute
	IdleEviction time.Duration `yaml:"idle_eviction"`  // evict buckets idle this long
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled     bool                     `yaml:"enabled"`
	MaxSize     int                      `yaml:"max_size"`
	DefaultTTL  time.Duration            `yaml:"default_ttl"`
	ResourceTTL map[string]time.Duration `yaml:"resource_ttl"` // per-resource overrides
	NegativeTTL time.Duration            `yaml:"negative_ttl"` // 0 disables negative caching
	MaxPerPage  int                      `yaml:"max_per_page"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Default returns the configuration defaults applied before file values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			APIBaseURL:    "http://localhost:5050/api/cvps",
			MediaBaseURL:  "http://localhost:5050",
			Timeout:       10 * time.Second,
			RetryAttempts: 3,
		},
		Database: DatabaseConfig{
			DSN: "cvps-gateway.db",
		},
		RateLimits: RateLimitConfig{
			Capacity:     60,
			RefillPerMin: 60,
			IdleEviction: 30 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxSize:    10_000,
			DefaultTTL: 5 * time.Minute,
			MaxPerPage: 100,
		},
	}
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Upstream.APIBaseURL == "" {
		return fmt.Errorf("config: upstream.api_base_url is required")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("config: upstream.timeout must be positive")
	}
	if c.Upstream.RetryAttempts < 1 {
		return fmt.Errorf("config: upstream.retry_attempts must be at least 1")
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("config: cache.max_size must be positive")
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("config: cache.default_ttl must be positive")
	}
	if c.Cache.MaxPerPage <= 0 {
		return fmt.Errorf("config: cache.max_per_page must be positive")
	}
	for res, ttl := range c.Cache.ResourceTTL {
		if ttl <= 0 {
			return fmt.Errorf("config: cache.resource_ttl[%s] must be positive", res)
		}
	}
	if c.RateLimits.Capacity < 0 || c.RateLimits.RefillPerMin < 0 {
		return fmt.Errorf("config: rate_limits values must not be negative")
	}
	return nil
}
