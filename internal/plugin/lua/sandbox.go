package lua

import (
	"strings"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// removedGlobals are base functions that load code from disk or strings.
var removedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"module",
}

// requirable are the modules a plugin may require. They are all opened as
// globals already; require only hands them back.
var requirable = map[string]bool{
	"string":    true,
	"table":     true,
	"math":      true,
	"dashboard": true,
}

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L      *lua.LState
	logger zerolog.Logger
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, logger zerolog.Logger) *Sandbox {
	return &Sandbox{L: L, logger: logger}
}

// Install removes code-loading functions and replaces print and require.
func (s *Sandbox) Install() {
	for _, name := range removedGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installPrint()
	s.installSafeRequire()
}

// installPrint routes print output to the logger.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info().Str("source", "lua").Msg(strings.Join(parts, "\t"))
		return 0
	}))
}

// installSafeRequire replaces require with a lookup restricted to the
// whitelisted modules. Nothing is ever loaded from disk.
func (s *Sandbox) installSafeRequire() {
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !requirable[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		mod := L.GetGlobal(name)
		if mod == lua.LNil {
			L.RaiseError("module %q is not loaded", name)
			return 0
		}
		L.Push(mod)
		return 1
	}))
}
