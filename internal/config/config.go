// Package config loads the pagetracker CLI configuration.
//
// Sources, highest precedence first:
//  1. Command-line flags (applied by the caller)
//  2. Environment variables (PAGETRACKER_*)
//  3. Configuration file
//  4. Built-in defaults
//
// Without an explicit path, .pagetracker.yaml in the working directory and
// ~/.config/pagetracker/config.yaml are tried in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PAGETRACKER_"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads configuration from configPath, or from the default locations
// when configPath is empty, and applies environment overrides. A missing
// default file is not an error; a missing explicit file is.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		for _, path := range defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				if err := loadFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultPaths() []string {
	paths := []string{".pagetracker.yaml", ".pagetracker.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pagetracker", "config.yaml"))
	}
	return paths
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies PAGETRACKER_* variables. Malformed values are
// reported instead of silently ignored.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	var errs []error

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = parseBool(v)
		}
	}

	integer("PAGE_SIZE", &cfg.Tracker.PageSize)

	str("URL", &cfg.Source.URL)
	str("ITEMS_FIELD", &cfg.Source.ItemsField)
	str("NEXT_FIELD", &cfg.Source.NextField)
	str("USER_AGENT", &cfg.Source.UserAgent)
	duration("TIMEOUT", &cfg.Source.Timeout)
	integer("MAX_RETRIES", &cfg.Source.MaxRetries)

	str("REDIS_ADDR", &cfg.Cache.RedisAddr)
	integer("REDIS_DB", &cfg.Cache.RedisDB)
	duration("CACHE_TTL", &cfg.Cache.TTL)

	boolean("RATE_LIMIT", &cfg.RateLimit.Enabled)

	str("LOG_LEVEL", &cfg.Logging.Level)
	boolean("LOG_PRETTY", &cfg.Logging.Pretty)

	str("METRICS_ADDR", &cfg.Metrics.Addr)

	return errors.Join(errs...)
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// Validate checks the configuration after all sources are applied.
func (c *Config) Validate() error {
	if c.Tracker.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidConfig, c.Tracker.PageSize)
	}
	if c.Source.URL == "" {
		return fmt.Errorf("%w: source url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: source url %q must be an absolute http(s) URL", ErrInvalidConfig, c.Source.URL)
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative, got %d", ErrInvalidConfig, c.Source.MaxRetries)
	}
	if c.Source.Timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be negative", ErrInvalidConfig)
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive when redis is configured", ErrInvalidConfig)
	}
	if c.RateLimit.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("%w: rate limiting needs redis_addr", ErrInvalidConfig)
	}
	if c.RateLimit.ThrottleThreshold < c.RateLimit.BlockThreshold {
		return fmt.Errorf("%w: throttle threshold %d is below block threshold %d",
			ErrInvalidConfig, c.RateLimit.ThrottleThreshold, c.RateLimit.BlockThreshold)
	}
	return nil
}
