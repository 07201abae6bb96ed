package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tracker.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10", cfg.Tracker.PageSize)
	}
	if cfg.Source.ItemsField != "items" || cfg.Source.NextField != "links.next" {
		t.Errorf("Envelope = %s/%s, want items/links.next", cfg.Source.ItemsField, cfg.Source.NextField)
	}
	if cfg.Source.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Source.Timeout)
	}
	if cfg.Cache.RedisAddr != "" {
		t.Errorf("Expected cache disabled by default, got %s", cfg.Cache.RedisAddr)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoad_File(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
tracker:
  page_size: 25

source:
  url: https://api.example.com/orders
  items_field: data
  next_field: meta.next
  timeout: 5s
  headers:
    Authorization: Bearer token

cache:
  redis_addr: localhost:6379
  ttl: 2m

rate_limit:
  enabled: true

logging:
  level: debug
  pretty: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tracker.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", cfg.Tracker.PageSize)
	}
	if cfg.Source.URL != "https://api.example.com/orders" {
		t.Errorf("URL = %s", cfg.Source.URL)
	}
	if cfg.Source.ItemsField != "data" || cfg.Source.NextField != "meta.next" {
		t.Errorf("Envelope = %s/%s, want data/meta.next", cfg.Source.ItemsField, cfg.Source.NextField)
	}
	if cfg.Source.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Source.Timeout)
	}
	if cfg.Source.Headers["Authorization"] != "Bearer token" {
		t.Errorf("Headers = %v", cfg.Source.Headers)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("TTL = %v, want 2m", cfg.Cache.TTL)
	}
	if !cfg.RateLimit.Enabled || !cfg.Logging.Pretty {
		t.Error("Expected rate limit and pretty logging enabled")
	}
	// unset keys keep their defaults
	if cfg.Source.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", cfg.Source.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Error("Expected error for missing config file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("tracker: [page_size"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "parse") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tracker:\n  page_size: 25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PAGETRACKER_PAGE_SIZE", "40")
	t.Setenv("PAGETRACKER_URL", "https://env.example.com/items")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tracker.PageSize != 40 {
		t.Errorf("PageSize = %d, want 40 from env", cfg.Tracker.PageSize)
	}
	if cfg.Source.URL != "https://env.example.com/items" {
		t.Errorf("URL = %s", cfg.Source.URL)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"PAGETRACKER_REDIS_ADDR":   "redis:6379",
		"PAGETRACKER_REDIS_DB":     "2",
		"PAGETRACKER_CACHE_TTL":    "90s",
		"PAGETRACKER_RATE_LIMIT":   "yes",
		"PAGETRACKER_LOG_LEVEL":    "warn",
		"PAGETRACKER_METRICS_ADDR": ":9090",
		"PAGETRACKER_ITEMS_FIELD":  "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := applyEnvOverrides(cfg, lookup); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Cache.RedisAddr != "redis:6379" || cfg.Cache.RedisDB != 2 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("TTL = %v, want 90s", cfg.Cache.TTL)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("Expected rate limit enabled")
	}
	if cfg.Logging.Level != "warn" || cfg.Metrics.Addr != ":9090" {
		t.Errorf("Logging/Metrics = %+v / %+v", cfg.Logging, cfg.Metrics)
	}
	if cfg.Source.ItemsField != "items" {
		t.Errorf("Expected empty env value to keep default, got %s", cfg.Source.ItemsField)
	}
}

func TestApplyEnvOverrides_Malformed(t *testing.T) {
	env := map[string]string{
		"PAGETRACKER_PAGE_SIZE": "ten",
		"PAGETRACKER_TIMEOUT":   "soon",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	err := applyEnvOverrides(DefaultConfig(), lookup)
	if err == nil {
		t.Fatal("Expected error for malformed values")
	}
	for _, name := range []string{"PAGETRACKER_PAGE_SIZE", "PAGETRACKER_TIMEOUT"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Expected error to mention %s, got %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Source.URL = "https://api.example.com/items"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero page size", func(c *Config) { c.Tracker.PageSize = 0 }, true},
		{"missing url", func(c *Config) { c.Source.URL = "" }, true},
		{"relative url", func(c *Config) { c.Source.URL = "/items" }, true},
		{"negative retries", func(c *Config) { c.Source.MaxRetries = -1 }, true},
		{"redis without ttl", func(c *Config) { c.Cache.RedisAddr = "localhost:6379"; c.Cache.TTL = 0 }, true},
		{"rate limit without redis", func(c *Config) { c.RateLimit.Enabled = true }, true},
		{"rate limit with redis", func(c *Config) { c.RateLimit.Enabled = true; c.Cache.RedisAddr = "localhost:6379" }, false},
		{"thresholds inverted", func(c *Config) { c.RateLimit.ThrottleThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
