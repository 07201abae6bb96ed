// Package logging configures structured zerolog output for the tracker,
// its adapters and the CLI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component names used in the "component" field.
const (
	ComponentTracker = "pagination-tracker"
	ComponentStore   = "page-store"
	ComponentHTTP    = "http-fetch"
	ComponentCLI     = "cli"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `yaml:"level"`

	// Pretty switches from JSON lines to the console writer.
	Pretty bool `yaml:"pretty"`

	// Output defaults to os.Stderr.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel maps a config string to a zerolog level. Unknown values mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a logger tagged with the given component from the global logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Level guidelines:
//
// Debug: per-request detail
//   - track decisions (ignored, within loaded pages, end of data, triggered)
//   - request start/finish with generation and page counts
//   - cache hits and misses
//
// Info: lifecycle
//   - reset completed (pages, total items)
//   - CLI startup and end of data
//
// Warn: failures that are swallowed or degraded
//   - background fetch triggered by track failed
//   - cache read/write errors (falls back to the fetch)
//   - HTTP retry attempts
//
// Error: failures returned to the caller that need attention
//   - retries exhausted
//   - configuration errors
//
// Context fields:
//   - generation: request generation number
//   - request_id: per-request UUID
//   - pages, total_items, page_size
//   - position: "section/row"
//   - cursor, url, status_code, duration
