// Package app wires the event bus, configuration, slot registry, shared store,
// plugin manager and Lua plugin loader into a runnable dashboard core.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/config/watcher"
	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/log"
	"github.com/dshills/dashcore/internal/metrics"
	"github.com/dshills/dashcore/internal/plugin"
	"github.com/dshills/dashcore/internal/plugin/envstatus"
	"github.com/dshills/dashcore/internal/plugin/lua"
	"github.com/dshills/dashcore/internal/slot"
	"github.com/dshills/dashcore/internal/store"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty means environment only.
	ConfigPath string

	// Config, when set, is used instead of loading ConfigPath.
	Config *config.Config

	// PagePath is the HTML page holding the slot containers.
	PagePath string

	// Page, when set, is read instead of PagePath. When both are empty the
	// built-in page is used.
	Page io.Reader

	// PluginsDir overrides plugins.dir from the configuration.
	PluginsDir string

	// Plugins are extra Go plugin definitions registered after the
	// built-in ones and before the Lua plugins.
	Plugins []plugin.Definition

	// Watch reloads the configuration file when it changes.
	Watch bool

	// Trace, when set, receives one JSON line per emitted event.
	Trace io.Writer

	// EnvProvider probes environment keys. Defaults to the process
	// environment.
	EnvProvider envstatus.Provider

	// Registry receives the bus and plugin metrics. A private registry is
	// created when nil.
	Registry *prometheus.Registry

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Application is the running dashboard core.
type Application struct {
	opts   Options
	logger zerolog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	bus      *event.Bus
	config   *config.Config
	store    *store.Memory
	document *html.Node
	slots    *slot.Registry
	manager  *plugin.Manager
	loader   *lua.Loader
	scripts  []*lua.Script
	watcher  *watcher.Watcher
	trace    *TraceRecorder

	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelFunc
}

// New creates and bootstraps an application. Lua plugins that fail to load
// are logged and skipped; every other failure is returned as *InitError.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if opts.Logger != nil {
		app.logger = *opts.Logger
	} else {
		app.logger = log.WithComponent("app")
	}

	b := newBootstrapper(app, opts)
	if err := b.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Start loads the plugin policy, enables the configured plugins and, when
// requested, starts watching the configuration file. Individual plugin
// failures are reported by event and log and do not fail Start.
func (app *Application) Start(ctx context.Context) error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return ErrClosed
	}
	if app.running {
		app.mu.Unlock()
		return ErrAlreadyRunning
	}
	app.running = true
	app.mu.Unlock()

	startCtx, _ := app.bus.StartCorrelation(ctx)
	if err := app.manager.LoadConfig(startCtx, app.config); err != nil {
		app.abortStart()
		return err
	}
	if err := app.manager.EnableConfigured(startCtx); err != nil {
		app.logger.Warn().Err(err).Msg("some plugins were not enabled")
	}

	// Each reload starts its own correlation.
	if app.watcher != nil {
		wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		app.mu.Lock()
		app.cancel = cancel
		app.mu.Unlock()
		if err := app.watcher.Start(wctx); err != nil {
			cancel()
			app.abortStart()
			return fmt.Errorf("start config watcher: %w", err)
		}
	}

	snap := app.manager.Snapshot()
	app.logger.Info().
		Str("policy", snap.Policy).
		Strs("active", snap.Active).
		Int("failed", len(snap.Failed)).
		Msg("dashboard started")
	return nil
}

// abortStart undoes the running flag of a failed Start so it can be retried.
func (app *Application) abortStart() {
	app.mu.Lock()
	app.running = false
	app.cancel = nil
	app.mu.Unlock()
}

// IsRunning reports whether Start succeeded and Shutdown has not run.
func (app *Application) IsRunning() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.running && !app.closed
}

// Render writes the page with every mounted plugin to w.
func (app *Application) Render(w io.Writer) error {
	return slot.Render(w, app.document)
}

// Shutdown disables the active plugins in reverse registration order, stops
// the watcher, detaches the manager and closes the Lua scripts. It is safe
// to call more than once.
func (app *Application) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	cancel := app.cancel
	app.mu.Unlock()

	var errs []error
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close config watcher: %w", err))
		}
	}
	if cancel != nil {
		cancel()
	}
	app.manager.Detach()

	defs := app.manager.List()
	for i := len(defs) - 1; i >= 0; i-- {
		id := defs[i].ID
		if !app.manager.IsActive(id) {
			continue
		}
		if err := app.manager.Disable(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	for _, sc := range app.scripts {
		if err := sc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", sc.Name(), err))
		}
	}
	if app.trace != nil {
		app.trace.Close()
	}

	app.logger.Debug().Msg("dashboard stopped")
	return errors.Join(errs...)
}

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus {
	return app.bus
}

// Config returns the current configuration, including watcher reloads.
func (app *Application) Config() *config.Config {
	if app.watcher != nil {
		if cfg := app.watcher.Current(); cfg != nil {
			return cfg
		}
	}
	return app.config
}

// Manager returns the plugin manager.
func (app *Application) Manager() *plugin.Manager {
	return app.manager
}

// Slots returns the slot registry.
func (app *Application) Slots() *slot.Registry {
	return app.slots
}

// Store returns the shared store.
func (app *Application) Store() *store.Memory {
	return app.store
}

// Document returns the page root.
func (app *Application) Document() *html.Node {
	return app.document
}

// Registry returns the metrics registry.
func (app *Application) Registry() *prometheus.Registry {
	return app.registry
}

// Trace returns the trace recorder, or nil when tracing is off.
func (app *Application) Trace() *TraceRecorder {
	return app.trace
}

// Scripts returns the loaded Lua scripts.
func (app *Application) Scripts() []*lua.Script {
	return append([]*lua.Script(nil), app.scripts...)
}
