package event

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/log"
)

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	logger   zerolog.Logger
	recorder Recorder
	now      func() time.Time
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger:   log.WithComponent("event"),
		recorder: nopRecorder{},
		now:      time.Now,
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *busConfig) {
		c.logger = l
	}
}

// WithRecorder sets the recorder that receives dispatch measurements.
func WithRecorder(r Recorder) Option {
	return func(c *busConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *busConfig) {
		if now != nil {
			c.now = now
		}
	}
}
