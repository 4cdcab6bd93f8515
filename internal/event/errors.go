package event

import (
	"errors"

	"github.com/dshills/dashcore/internal/event/dispatch"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidTopic is returned when a topic is empty or malformed, or when
	// a wildcard pattern is used as an emitted name.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidSubscription is returned when a subscription is nil, foreign
	// to the bus, or passed to the wrong Off variant.
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrGroupClosed is returned when subscribing through a closed Group.
	ErrGroupClosed = errors.New("subscription group is closed")
)

// PanicError is the error recorded for an async handler that panicked.
type PanicError = dispatch.PanicError

// HandlerError wraps the error of a synchronous handler that aborted an
// emission.
type HandlerError struct {
	// SubscriptionID is the ID of the subscription whose handler failed.
	SubscriptionID string

	// Topic is the name of the event being emitted.
	Topic string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "sync handler " + e.SubscriptionID + " failed on " + e.Topic + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
