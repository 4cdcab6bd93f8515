package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/config/watcher"
	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/log"
	"github.com/dshills/dashcore/internal/metrics"
	"github.com/dshills/dashcore/internal/plugin"
	"github.com/dshills/dashcore/internal/plugin/lua"
	"github.com/dshills/dashcore/internal/slot"
	"github.com/dshills/dashcore/internal/store"
)

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 8),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initMetrics,  // 1. registry and recorder
		b.initEventBus, // 2. messaging foundation
		b.initTrace,    // 3. history subscriber, before anything emits
		b.initConfig,   // 4. configuration snapshot
		b.initStore,    // 5. shared state
		b.initPage,     // 6. document and slot containers
		b.initPlugins,  // 7. manager, built-in, Go and Lua plugins
		b.initWatcher,  // 8. config reloads
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

// componentLogger derives a logger for a named component.
func (b *bootstrapper) componentLogger(name string) zerolog.Logger {
	if b.opts.Logger != nil {
		return b.opts.Logger.With().Str(log.FieldComponent, name).Logger()
	}
	return log.WithComponent(name)
}

func (b *bootstrapper) initMetrics() error {
	reg := b.opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	ns := b.opts.MetricsNamespace
	if ns == "" {
		ns = metrics.DefaultNamespace
	}

	var m *metrics.Metrics
	if err := capturePanic(func() { m = metrics.New(reg, ns) }); err != nil {
		return &InitError{Component: "metrics", Err: err}
	}
	b.app.registry = reg
	b.app.metrics = m
	b.initOrder = append(b.initOrder, "metrics")
	return nil
}

func (b *bootstrapper) initEventBus() error {
	b.app.bus = event.NewBus(
		event.WithLogger(b.componentLogger("event")),
		event.WithRecorder(b.app.metrics),
	)
	b.initOrder = append(b.initOrder, "eventBus")
	return nil
}

func (b *bootstrapper) initTrace() error {
	if b.opts.Trace == nil {
		return nil
	}
	tr, err := NewTraceRecorder(b.app.bus, b.opts.Trace, 0)
	if err != nil {
		return &InitError{Component: "trace", Err: err}
	}
	b.app.trace = tr
	b.initOrder = append(b.initOrder, "trace")
	return nil
}

func (b *bootstrapper) initConfig() error {
	cfg := b.opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.Load(b.opts.ConfigPath)
		if err != nil {
			return &InitError{Component: "config", Err: err}
		}
	}
	b.app.config = cfg
	b.initOrder = append(b.initOrder, "config")
	return nil
}

func (b *bootstrapper) initStore() error {
	b.app.store = store.NewMemory(nil)
	b.initOrder = append(b.initOrder, "store")
	return nil
}

func (b *bootstrapper) initPage() error {
	var r io.Reader
	switch {
	case b.opts.Page != nil:
		r = b.opts.Page
	case b.opts.PagePath != "":
		f, err := os.Open(b.opts.PagePath)
		if err != nil {
			return &InitError{Component: "page", Err: err}
		}
		defer f.Close()
		r = f
	default:
		r = strings.NewReader(DefaultPage)
	}

	doc, err := slot.ParseDocument(r)
	if err != nil {
		return &InitError{Component: "page", Err: err}
	}
	b.app.document = doc
	b.app.slots = slot.NewRegistry()
	n := b.app.slots.RegisterFromDOM(doc)
	b.app.logger.Debug().Int("containers", n).Strs("slots", b.app.slots.IDs()).Msg("slots registered")
	b.initOrder = append(b.initOrder, "page")
	return nil
}

func (b *bootstrapper) initPlugins() error {
	opts := []plugin.Option{
		plugin.WithLogger(b.componentLogger("plugin")),
		plugin.WithStore(b.app.store),
		plugin.WithRecorder(b.app.metrics),
		plugin.WithAppContext(map[string]any{
			"name":    "dashcore",
			"version": Version,
		}),
	}
	if b.opts.EnvProvider != nil {
		opts = append(opts, plugin.WithEnvProvider(b.opts.EnvProvider))
	}
	m := plugin.NewManager(b.app.bus, b.app.slots, opts...)
	b.app.manager = m
	b.initOrder = append(b.initOrder, "plugins")

	if err := m.Attach(b.app.bus); err != nil {
		return &InitError{Component: "plugins", Err: err}
	}

	builtins := []plugin.Definition{statusPlugin(b.app.store)}
	for _, def := range append(builtins, b.opts.Plugins...) {
		if err := m.Register(context.Background(), def); err != nil {
			return &InitError{Component: "plugins", Err: err}
		}
	}
	return b.loadLuaPlugins()
}

// loadLuaPlugins loads the scripts in the plugins directory. Broken scripts
// and conflicting ids are logged and skipped.
func (b *bootstrapper) loadLuaPlugins() error {
	dir := b.opts.PluginsDir
	if dir == "" {
		dir = b.app.config.String(config.PathPluginsDir)
	}
	if dir == "" {
		return nil
	}

	b.app.loader = lua.NewLoader(lua.WithLogger(b.componentLogger("lua")))
	scripts, err := b.app.loader.LoadDir(dir)
	if err != nil {
		b.app.logger.Warn().Err(err).Str(log.FieldPath, dir).Msg("some lua plugins failed to load")
	}
	for _, sc := range scripts {
		b.app.scripts = append(b.app.scripts, sc)
		for _, def := range sc.Definitions() {
			if err := b.app.manager.Register(context.Background(), def); err != nil {
				b.app.logger.Error().Err(err).
					Str(log.FieldPluginID, def.ID).
					Str("script", sc.Name()).
					Msg("lua plugin not registered")
			}
		}
	}
	return nil
}

func (b *bootstrapper) initWatcher() error {
	if !b.opts.Watch {
		return nil
	}
	path := b.opts.ConfigPath
	if path == "" {
		path = b.app.config.Path()
	}
	if path == "" {
		return &InitError{Component: "config watcher", Err: errors.New("watching requires a config file")}
	}
	w, err := watcher.New(path, b.app.bus,
		watcher.WithLogger(b.componentLogger("config")),
		watcher.WithInitial(b.app.config),
	)
	if err != nil {
		return &InitError{Component: "config watcher", Err: err}
	}
	b.app.watcher = w
	b.initOrder = append(b.initOrder, "watcher")
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "watcher":
		if b.app.watcher != nil {
			_ = b.app.watcher.Close()
			b.app.watcher = nil
		}
	case "plugins":
		if b.app.manager != nil {
			b.app.manager.Detach()
		}
		for _, sc := range b.app.scripts {
			_ = sc.Close()
		}
		b.app.scripts = nil
	case "trace":
		if b.app.trace != nil {
			b.app.trace.Close()
			b.app.trace = nil
		}
	case "page":
		b.app.slots = nil
		b.app.document = nil
	}
}

// capturePanic runs fn and converts a panic into an error.
func capturePanic(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	fn()
	return nil
}
