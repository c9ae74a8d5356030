package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	yaml := `
server:
  addr: ":9090"
  read_timeout: 10s
upstream:
  api_base_url: https://cms.example.com/api/cvps
  media_base_url: https://cms.example.com
  api_key: cvps-test-key
  site_id: latitude36.com.au
  timeout: 5s
  retry_attempts: 2
database:
  dsn: ":memory:"
credentials:
  - api_key: storefront-key
    site_id: latitude36.com.au
cache:
  max_size: 500
  default_ttl: 2m
  resource_ttl:
    products: 1m
    homepage: 10m
rate_limits:
  capacity: 5
  refill_per_min: 5
`
	path := writeConfig(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", cfg.Server.Addr, ":9090")
	}
	if cfg.Upstream.APIBaseURL != "https://cms.example.com/api/cvps" {
		t.Errorf("api_base_url = %q", cfg.Upstream.APIBaseURL)
	}
	if cfg.Upstream.RetryAttempts != 2 {
		t.Errorf("retry_attempts = %d, want 2", cfg.Upstream.RetryAttempts)
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("dsn = %q, want %q", cfg.Database.DSN, ":memory:")
	}
	if len(cfg.Credentials) != 1 || cfg.Credentials[0].APIKey != "storefront-key" {
		t.Fatalf("credentials = %+v, want one storefront-key entry", cfg.Credentials)
	}
	if cfg.Cache.MaxSize != 500 {
		t.Errorf("cache.max_size = %d, want 500", cfg.Cache.MaxSize)
	}
	if got := cfg.Cache.ResourceTTL["products"]; got != time.Minute {
		t.Errorf("resource_ttl[products] = %v, want 1m", got)
	}
	if cfg.RateLimits.Capacity != 5 {
		t.Errorf("rate_limits.capacity = %d, want 5", cfg.RateLimits.Capacity)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	// A minimal file keeps every default.
	path := writeConfig(t, "server:\n  addr: \":7070\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Cache.DefaultTTL != 5*time.Minute {
		t.Errorf("default_ttl = %v, want 5m", cfg.Cache.DefaultTTL)
	}
	if cfg.Upstream.RetryAttempts != 3 {
		t.Errorf("retry_attempts = %d, want 3", cfg.Upstream.RetryAttempts)
	}
	if cfg.Cache.MaxPerPage != 100 {
		t.Errorf("max_per_page = %d, want 100", cfg.Cache.MaxPerPage)
	}
	if cfg.RateLimits.IdleEviction != 30*time.Minute {
		t.Errorf("idle_eviction = %v, want 30m", cfg.RateLimits.IdleEviction)
	}
}

func TestExpandEnv(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv
	t.Setenv("TEST_CVPS_KEY", "cvps-secret-123")

	result := expandEnv([]byte("api_key: ${TEST_CVPS_KEY}"))
	if string(result) != "api_key: cvps-secret-123" {
		t.Errorf("expandEnv = %q, want substituted value", result)
	}

	// Unset variables are left as-is.
	result = expandEnv([]byte("api_key: ${TEST_CVPS_UNSET}"))
	if string(result) != "api_key: ${TEST_CVPS_UNSET}" {
		t.Errorf("expandEnv on unset var = %q, want untouched", result)
	}
}

func TestExpandEnv_InFile(t *testing.T) {
	t.Setenv("TEST_CVPS_SITE", "latitude36.com.au")

	path := writeConfig(t, "upstream:\n  site_id: ${TEST_CVPS_SITE}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Upstream.SiteID != "latitude36.com.au" {
		t.Errorf("site_id = %q, want expanded env value", cfg.Upstream.SiteID)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing base url", mutate: func(c *Config) { c.Upstream.APIBaseURL = "" }},
		{name: "zero timeout", mutate: func(c *Config) { c.Upstream.Timeout = 0 }},
		{name: "zero retries", mutate: func(c *Config) { c.Upstream.RetryAttempts = 0 }},
		{name: "zero cache size", mutate: func(c *Config) { c.Cache.MaxSize = 0 }},
		{name: "zero default ttl", mutate: func(c *Config) { c.Cache.DefaultTTL = 0 }},
		{name: "zero max per page", mutate: func(c *Config) { c.Cache.MaxPerPage = 0 }},
		{name: "negative capacity", mutate: func(c *Config) { c.RateLimits.Capacity = -1 }},
		{name: "bad resource ttl", mutate: func(c *Config) {
			c.Cache.ResourceTTL = map[string]time.Duration{"blog": -time.Second}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := Default().Validate(); err != nil {
			t.Errorf("Default() should validate, got %v", err)
		}
	})
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
