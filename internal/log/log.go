// Package log configures the structured logger shared by every dashcore
// component.
//
// A single zerolog base logger is configured once per process. Components
// derive child loggers tagged with their name via WithComponent.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Canonical field names used across components.
const (
	FieldComponent     = "component"
	FieldEvent         = "event"
	FieldEventID       = "event_id"
	FieldCorrelationID = "correlation_id"
	FieldCausationID   = "causation_id"
	FieldPluginID      = "plugin_id"
	FieldSlotID        = "slot_id"
	FieldPath          = "path"
)

// Config captures options for configuring the base logger.
type Config struct {
	Level   string    // "debug", "info", "warn", "error"; falls back to DASHCORE_LOG_LEVEL
	Output  io.Writer // defaults to os.Stderr
	Console bool      // human-readable output instead of JSON
}

var (
	mu         sync.Mutex
	configured bool
	base       zerolog.Logger
)

// Configure sets up the base logger. Only the first call has an effect;
// subsequent calls are ignored so packages may call it defensively.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if configured {
		return
	}
	configured = true
	base = build(cfg)
}

func build(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	raw := cfg.Level
	if raw == "" {
		raw = os.Getenv("DASHCORE_LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ParseLevel reports whether s names a known log level.
func ParseLevel(s string) (zerolog.Level, error) {
	return zerolog.ParseLevel(s)
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	Configure(Config{})
	mu.Lock()
	defer mu.Unlock()
	return base
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}

// New builds a standalone logger writing to w. It does not touch the base
// logger and is meant for tests and embedded use.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
