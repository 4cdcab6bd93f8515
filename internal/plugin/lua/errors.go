package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call exceeds the execution
	// timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrInvalidRegistration is returned when dashboard.register receives
	// a malformed plugin table.
	ErrInvalidRegistration = errors.New("invalid plugin registration")

	// ErrNoEntryPoint is returned when a plugin directory has no init.lua.
	ErrNoEntryPoint = errors.New("no init.lua entry point")
)
