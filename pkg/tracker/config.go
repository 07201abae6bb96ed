package tracker

import (
	"github.com/rs/zerolog"

	"github.com/Sternrassler/pagetracker/pkg/logging"
)

// DefaultPageSize is the trigger threshold used when Config.PageSize is unset.
const DefaultPageSize = 10

// Config holds tracker configuration.
type Config struct {
	// PageSize is the number of items before the end of the loaded data at
	// which the next page is requested. It does not limit page contents.
	PageSize int

	// Logger overrides the component logger derived from the global logger.
	Logger *zerolog.Logger

	// Dispatcher runs presenter and handler callbacks (default: Immediate).
	Dispatcher Dispatcher
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:   DefaultPageSize,
		Dispatcher: Immediate,
	}
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Dispatcher == nil {
		c.Dispatcher = Immediate
	}
	return c
}

// logger returns Logger, or the tracker component logger when unset.
func (c Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return logging.NewLogger(logging.ComponentTracker)
}
