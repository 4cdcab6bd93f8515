package plugin

import (
	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/log"
	"github.com/dshills/dashcore/internal/plugin/envstatus"
	"github.com/dshills/dashcore/internal/store"
)

// Transition kinds reported to a Recorder.
const (
	TransitionEnabled            = "enabled"
	TransitionDisabled           = "disabled"
	TransitionRequirementsFailed = "requirements-failed"
	TransitionMountFailed        = "mount-failed"
	TransitionRefused            = "refused"
)

// Recorder receives lifecycle measurements.
type Recorder interface {
	// TransitionRecorded is called once per completed transition.
	TransitionRecorded(pluginID, kind string)

	// ActivePlugins reports the number of enabled plugins.
	ActivePlugins(n int)
}

type nopRecorder struct{}

func (nopRecorder) TransitionRecorded(string, string) {}
func (nopRecorder) ActivePlugins(int)                 {}

// Option configures a Manager.
type Option func(*managerConfig)

type managerConfig struct {
	logger   zerolog.Logger
	env      envstatus.Provider
	store    store.Store
	recorder Recorder
	app      map[string]any
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		logger:   log.WithComponent("plugin"),
		env:      envstatus.OSProvider{},
		recorder: nopRecorder{},
	}
}

// WithLogger sets the manager logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *managerConfig) {
		c.logger = l
	}
}

// WithEnvProvider sets the provider used for environment requirements. The
// manager caches its answers for its lifetime.
func WithEnvProvider(p envstatus.Provider) Option {
	return func(c *managerConfig) {
		if p != nil {
			c.env = p
		}
	}
}

// WithStore sets the store that receives lifecycle snapshots.
func WithStore(s store.Store) Option {
	return func(c *managerConfig) {
		c.store = s
	}
}

// WithRecorder sets the lifecycle recorder.
func WithRecorder(r Recorder) Option {
	return func(c *managerConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithAppContext sets the values passed to every mount as MountContext.App.
func WithAppContext(app map[string]any) Option {
	return func(c *managerConfig) {
		c.app = app
	}
}
