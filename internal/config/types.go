package config

import "time"

// Config is the complete configuration of the pagetracker CLI.
type Config struct {
	Tracker   TrackerConfig   `yaml:"tracker"`
	Source    SourceConfig    `yaml:"source"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// TrackerConfig controls when the next page is requested.
type TrackerConfig struct {
	// PageSize is the distance from the end of the loaded items at which
	// scrolling triggers the next fetch.
	PageSize int `yaml:"page_size"`
}

// SourceConfig describes the remote paginated list.
type SourceConfig struct {
	URL        string            `yaml:"url"`
	ItemsField string            `yaml:"items_field"`
	NextField  string            `yaml:"next_field"`
	UserAgent  string            `yaml:"user_agent"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
}

// CacheConfig enables the Redis page cache. An empty RedisAddr disables it.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

// RateLimitConfig configures the shared rate limit gate. It needs the
// Redis cache to be configured.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BlockThreshold    int           `yaml:"block_threshold"`
	ThrottleThreshold int           `yaml:"throttle_threshold"`
	ThrottleDelay     time.Duration `yaml:"throttle_delay"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Tracker: TrackerConfig{
			PageSize: 10,
		},
		Source: SourceConfig{
			ItemsField: "items",
			NextField:  "links.next",
			UserAgent:  "pagetracker/1.0",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			BlockThreshold:    1,
			ThrottleThreshold: 10,
			ThrottleDelay:     500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
