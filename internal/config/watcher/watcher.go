// Package watcher provides live reload of the configuration file.
//
// The watcher subscribes to fsnotify events on the directory holding the
// configuration file, so editors that save by rename are handled. Bursts of
// events are debounced; once the file has been quiet for the debounce
// period it is reloaded and a config:changed event carrying the new
// *config.Config is published. A file that fails to parse is logged and the
// previous configuration stays current.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/event/events"
	"github.com/dshills/dashcore/internal/event/topic"
	"github.com/dshills/dashcore/internal/log"
)

// ErrWatcherClosed is returned when starting a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Publisher is the part of the event bus the watcher needs.
type Publisher interface {
	Emit(ctx context.Context, name topic.Topic, detail any) (event.DispatchResult, error)
}

// LoadFunc loads the configuration at path.
type LoadFunc func(path string) (*config.Config, error)

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = 1 << iota

	// OpCreate indicates the file was created.
	OpCreate

	// OpRemove indicates the file was deleted.
	OpRemove

	// OpRename indicates the file was renamed.
	OpRename
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

func convertOp(fsOp fsnotify.Op) Operation {
	switch {
	case fsOp.Has(fsnotify.Remove):
		return OpRemove
	case fsOp.Has(fsnotify.Rename):
		return OpRename
	case fsOp.Has(fsnotify.Create):
		return OpCreate
	case fsOp.Has(fsnotify.Write):
		return OpWrite
	default:
		return 0
	}
}

// Stats contains watcher statistics.
type Stats struct {
	Reloads   int64
	Failures  int64
	LastError error
}

// Watcher reloads a configuration file when it changes.
type Watcher struct {
	path     string
	pub      Publisher
	logger   zerolog.Logger
	debounce time.Duration
	load     LoadFunc

	current atomic.Pointer[config.Config]

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	closeCh chan struct{}
	wg      sync.WaitGroup
	running bool
	closed  bool
	lastErr error

	reloads  atomic.Int64
	failures atomic.Int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must stay quiet before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithLoadFunc overrides how the file is loaded. The default is config.Load.
func WithLoadFunc(fn LoadFunc) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.load = fn
		}
	}
}

// WithInitial sets the configuration reported by Current before the first
// reload.
func WithInitial(cfg *config.Config) Option {
	return func(w *Watcher) {
		w.current.Store(cfg)
	}
}

// New creates a watcher for the configuration file at path.
func New(path string, pub Publisher, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watch config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}

	w := &Watcher{
		path:     absPath,
		pub:      pub,
		logger:   log.WithComponent("config"),
		debounce: 100 * time.Millisecond,
		load:     config.Load,
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *config.Config {
	return w.current.Load()
}

// Start begins watching. Events are published with ctx; the watcher stops
// when ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	w.fsw = fsw
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Debug().Str(log.FieldPath, w.path).Dur("debounce", w.debounce).Msg("watching config")
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	fsw := w.fsw
	w.mu.Unlock()

	w.wg.Wait()
	if fsw != nil {
		return fsw.Close()
	}
	return nil
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Reloads:   w.reloads.Load(),
		Failures:  w.failures.Load(),
		LastError: w.lastErr,
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			op := convertOp(ev.Op)
			if op == 0 {
				continue
			}
			w.logger.Debug().Str(log.FieldPath, w.path).Stringer("op", op).Msg("config file event")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.logger.Warn().Err(err).Str(log.FieldPath, w.path).Msg("config watcher error")

		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

// reload loads the file and publishes the result.
func (w *Watcher) reload(ctx context.Context) {
	cfg, err := w.load(w.path)
	if err != nil {
		w.failures.Add(1)
		w.recordError(err)
		w.logger.Error().Err(err).Str(log.FieldPath, w.path).Msg("config reload failed; keeping previous configuration")
		return
	}

	w.current.Store(cfg)
	w.reloads.Add(1)
	w.logger.Info().Str(log.FieldPath, w.path).Msg("config reloaded")

	if w.pub == nil {
		return
	}
	if _, err := w.pub.Emit(ctx, events.TopicConfigChanged, events.ConfigChanged{Path: w.path, Config: cfg}); err != nil {
		w.logger.Error().Err(err).Str(log.FieldEvent, string(events.TopicConfigChanged)).Msg("config:changed handler failed")
	}
}

func (w *Watcher) recordError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()
}
