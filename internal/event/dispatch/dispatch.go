package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Handler is the interface for event handlers.
// This mirrors the event package handler types to avoid circular imports.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// Result represents the outcome of one handler execution.
type Result struct {
	// Err is the error returned by the handler, or a *PanicError.
	Err error

	// Panicked is true if the handler panicked.
	Panicked bool

	// Duration is how long the handler took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the handler returned without error or panic.
func (r Result) IsSuccess() bool {
	return r.Err == nil && !r.Panicked
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the point of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.Is/As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// PanicHandler is notified when a handler panics.
type PanicHandler func(event any, panicValue any, stack []byte)
