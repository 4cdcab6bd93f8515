package lua

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/dashcore/internal/event/topic"
	"github.com/dshills/dashcore/internal/log"
	"github.com/dshills/dashcore/internal/plugin"
	"github.com/dshills/dashcore/internal/slot"
)

// Loader turns Lua scripts into plugin definitions. Each script gets its
// own sandboxed State, kept alive by the returned Script for as long as
// its mount and unmount functions may be called.
type Loader struct {
	logger  zerolog.Logger
	timeout time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader logger. Lua print output goes here too.
func WithLogger(l zerolog.Logger) LoaderOption {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithTimeout sets the execution timeout of each call into a script.
func WithTimeout(d time.Duration) LoaderOption {
	return func(ld *Loader) {
		ld.timeout = d
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:  log.WithComponent("lua"),
		timeout: DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Script is a loaded Lua script and the plugins it registered.
type Script struct {
	name  string
	state *State

	defs   []plugin.Definition
	regErr error
}

// LoadFile runs the script at path and returns the plugins it registered.
func (l *Loader) LoadFile(path string) (*Script, error) {
	return l.load(path, func(st *State) error {
		return st.DoFile(context.Background(), path)
	})
}

// LoadString runs src under name and returns the plugins it registered.
func (l *Loader) LoadString(name, src string) (*Script, error) {
	return l.load(name, func(st *State) error {
		return st.DoString(context.Background(), src)
	})
}

// LoadDir loads every plugin Discover finds under dir. Scripts that fail
// are skipped; their errors are joined.
func (l *Loader) LoadDir(dir string) ([]*Script, error) {
	entries, err := Discover(dir)
	if err != nil {
		return nil, err
	}

	var (
		scripts []*Script
		errs    []error
	)
	for _, e := range entries {
		if e.Err != nil {
			l.logger.Warn().Err(e.Err).Str(log.FieldPath, e.Path).Msg("skipping lua plugin")
			errs = append(errs, fmt.Errorf("%s: %w", e.Path, e.Err))
			continue
		}
		sc, err := l.LoadFile(e.Path)
		if err != nil {
			l.logger.Error().Err(err).Str(log.FieldPath, e.Path).Msg("lua plugin failed to load")
			errs = append(errs, err)
			continue
		}
		scripts = append(scripts, sc)
	}
	return scripts, errors.Join(errs...)
}

func (l *Loader) load(name string, run func(*State) error) (*Script, error) {
	logger := l.logger.With().Str("script", name).Logger()
	st := NewState(WithExecutionTimeout(l.timeout), WithStateLogger(logger))
	sc := &Script{name: name, state: st}

	if err := st.Do(context.Background(), func(L *lua.LState) error {
		mod := L.NewTable()
		L.SetField(mod, "register", L.NewFunction(sc.register))
		L.SetGlobal("dashboard", mod)
		return nil
	}); err != nil {
		_ = st.Close()
		return nil, err
	}

	if err := run(st); err != nil {
		_ = st.Close()
		if sc.regErr != nil {
			return nil, fmt.Errorf("load %s: %w", name, sc.regErr)
		}
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	logger.Debug().Int("plugins", len(sc.defs)).Msg("lua script loaded")
	return sc, nil
}

// Name returns the path or name the script was loaded from.
func (sc *Script) Name() string {
	return sc.name
}

// Definitions returns the registered plugins in registration order.
func (sc *Script) Definitions() []plugin.Definition {
	return append([]plugin.Definition(nil), sc.defs...)
}

// Close releases the script state. Mounts of its plugins fail afterwards.
func (sc *Script) Close() error {
	return sc.state.Close()
}

// register implements dashboard.register{...}.
func (sc *Script) register(L *lua.LState) int {
	tbl := L.CheckTable(1)
	def, err := sc.parseDefinition(tbl)
	if err != nil {
		sc.regErr = fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
		L.RaiseError("%s", sc.regErr.Error())
		return 0
	}
	sc.defs = append(sc.defs, def)
	L.Push(lua.LString(def.ID))
	return 1
}

func (sc *Script) parseDefinition(tbl *lua.LTable) (plugin.Definition, error) {
	id, ok := tbl.RawGetString("id").(lua.LString)
	if !ok || id == "" {
		return plugin.Definition{}, errors.New("id must be a non-empty string")
	}
	for _, d := range sc.defs {
		if d.ID == string(id) {
			return plugin.Definition{}, fmt.Errorf("plugin %q registered twice", id)
		}
	}

	def := plugin.Definition{
		ID:    string(id),
		Layer: plugin.LayerFeature,
		Slots: make(map[string]plugin.MountSpec),
	}

	switch v := tbl.RawGetString("layer").(type) {
	case *lua.LNilType:
	case lua.LString:
		def.Layer = plugin.Layer(v)
	default:
		return def, fmt.Errorf("%s: layer must be a string", id)
	}
	if v, ok := tbl.RawGetString("core").(lua.LBool); ok {
		def.Core = bool(v)
	}

	switch req := tbl.RawGetString("requirements").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		var err error
		if def.Requirements.ConfigKeys, err = stringList(req.RawGetString("config"), "requirements.config"); err != nil {
			return def, fmt.Errorf("%s: %w", id, err)
		}
		if def.Requirements.EnvKeys, err = stringList(req.RawGetString("env"), "requirements.env"); err != nil {
			return def, fmt.Errorf("%s: %w", id, err)
		}
	default:
		return def, fmt.Errorf("%s: requirements must be a table", id)
	}

	slots, ok := tbl.RawGetString("slots").(*lua.LTable)
	if !ok {
		if tbl.RawGetString("slots") != lua.LNil {
			return def, fmt.Errorf("%s: slots must be a table", id)
		}
		return def, nil
	}

	var slotErr error
	slots.ForEach(func(k, v lua.LValue) {
		if slotErr != nil {
			return
		}
		slotID, ok := k.(lua.LString)
		if !ok || slotID == "" {
			slotErr = fmt.Errorf("%s: slot ids must be non-empty strings", id)
			return
		}
		spec, err := sc.mountSpec(string(slotID), v)
		if err != nil {
			slotErr = fmt.Errorf("%s: %w", id, err)
			return
		}
		def.Slots[string(slotID)] = spec
	})
	return def, slotErr
}

// mountSpec accepts either a mount function or
// {mount = fn, manage_visibility = bool}.
func (sc *Script) mountSpec(slotID string, v lua.LValue) (plugin.MountSpec, error) {
	switch s := v.(type) {
	case *lua.LFunction:
		return plugin.Mount(sc.mountFunc(s)), nil
	case *lua.LTable:
		fn, ok := s.RawGetString("mount").(*lua.LFunction)
		if !ok {
			return plugin.MountSpec{}, fmt.Errorf("slot %q: mount must be a function", slotID)
		}
		var opts []plugin.MountOption
		if mv, ok := s.RawGetString("manage_visibility").(lua.LBool); ok && !bool(mv) {
			opts = append(opts, plugin.WithoutVisibility())
		}
		return plugin.MountWithOptions(sc.mountFunc(fn), opts...), nil
	default:
		return plugin.MountSpec{}, fmt.Errorf("slot %q: expected a function or table, got %s", slotID, v.Type())
	}
}

// mountFunc adapts a Lua mount function. A function returned by it
// becomes the unmount callback; an unmount error panics so the manager
// records it as a failed cleanup.
func (sc *Script) mountFunc(fn *lua.LFunction) plugin.MountFunc {
	return func(ctx context.Context, mc plugin.MountContext) (plugin.UnmountFunc, error) {
		var unmount *lua.LFunction
		err := sc.state.Do(ctx, func(L *lua.LState) error {
			ret, err := call(L, fn, 1, sc.mountTable(L, ctx, mc))
			if err != nil {
				return err
			}
			switch r := ret[0].(type) {
			case *lua.LNilType:
			case *lua.LFunction:
				unmount = r
			default:
				return fmt.Errorf("mount returned %s, want function or nil", r.Type())
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("lua mount %s/%s: %w", mc.PluginID, mc.SlotID, err)
		}
		if unmount == nil {
			return nil, nil
		}
		return func() {
			err := sc.state.Do(context.Background(), func(L *lua.LState) error {
				_, err := call(L, unmount, 0)
				return err
			})
			if err != nil {
				panic(fmt.Errorf("lua unmount %s/%s: %w", mc.PluginID, mc.SlotID, err))
			}
		}, nil
	}
}

// mountTable builds the ctx table passed to a Lua mount function. Its
// functions accept both ctx.f(x) and ctx:f(x) call styles.
func (sc *Script) mountTable(L *lua.LState, ctx context.Context, mc plugin.MountContext) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("slot_id", lua.LString(mc.SlotID))
	t.RawSetString("plugin_id", lua.LString(mc.PluginID))

	arg := func(L *lua.LState, n int) int {
		if L.Get(1) == lua.LValue(t) {
			return n + 1
		}
		return n
	}

	L.SetFuncs(t, map[string]lua.LGFunction{
		"set_text": func(L *lua.LState) int {
			slot.SetText(mc.Container, L.CheckString(arg(L, 1)))
			return 0
		},
		"set_attr": func(L *lua.LState) int {
			slot.SetAttr(mc.Container, L.CheckString(arg(L, 1)), L.CheckString(arg(L, 2)))
			return 0
		},
		"append_html": func(L *lua.LState) int {
			if err := slot.AppendHTML(mc.Container, L.CheckString(arg(L, 1))); err != nil {
				L.RaiseError("append_html: %v", err)
			}
			return 0
		},
		"emit": func(L *lua.LState) int {
			name := topic.Topic(L.CheckString(arg(L, 1)))
			detail := ToGoValue(L.Get(arg(L, 2)))
			if mc.Bus == nil {
				L.RaiseError("emit %s: no event bus", name)
				return 0
			}
			res, err := mc.Bus.Emit(ctx, name, detail)
			if err != nil {
				L.RaiseError("emit %s: %v", name, err)
				return 0
			}
			L.Push(lua.LNumber(res.Success))
			L.Push(lua.LNumber(len(res.Errors)))
			return 2
		},
		"config": func(L *lua.LState) int {
			v, ok := mc.Config.Lookup(L.CheckString(arg(L, 1)))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(ToLuaValue(L, v))
			return 1
		},
	})
	return t
}
