package event

import (
	"context"
	"time"

	"github.com/dshills/dashcore/internal/event/topic"
	"github.com/dshills/dashcore/internal/tracing"
)

// Event is the envelope delivered to handlers. Detail is supplied by the
// emitter and is opaque to the bus; Meta is stamped by the bus.
type Event struct {
	Name   topic.Topic
	Detail any
	Meta   tracing.Meta
}

// SyncHandler handles an event in the emitter's goroutine.
type SyncHandler func(ctx context.Context, evt Event) error

// AsyncHandler handles an event concurrently with the other async
// handlers of the same emission.
type AsyncHandler func(ctx context.Context, evt Event) error

// DeliveryMode specifies how events are delivered to a subscription.
type DeliveryMode int

const (
	// DeliverySync runs the handler in the emitter's goroutine before any
	// async handler starts.
	DeliverySync DeliveryMode = iota

	// DeliveryAsync runs the handler concurrently; Emit waits for it.
	DeliveryAsync
)

// String returns a human-readable delivery mode name.
func (m DeliveryMode) String() string {
	switch m {
	case DeliverySync:
		return "sync"
	case DeliveryAsync:
		return "async"
	default:
		return "unknown"
	}
}

// DispatchResult is the aggregate outcome of one emission's async handlers.
type DispatchResult struct {
	// Success is the number of async handlers that returned nil.
	Success int

	// Errors holds the errors returned by failed async handlers. Panics
	// appear as *PanicError.
	Errors []error

	// Meta is the tracing metadata stamped on the emitted event.
	Meta tracing.Meta
}

// Failed returns true if at least one async handler failed.
func (r DispatchResult) Failed() bool {
	return len(r.Errors) > 0
}

// Stats contains event bus statistics.
type Stats struct {
	// EventsEmitted is the total number of emissions.
	EventsEmitted uint64

	// SyncFailures is the number of emissions aborted by a sync handler.
	SyncFailures uint64

	// AsyncSucceeded is the number of async handler runs that succeeded.
	AsyncSucceeded uint64

	// AsyncFailed is the number of async handler runs that failed or panicked.
	AsyncFailed uint64

	// ActiveSubscriptions is the current number of subscriptions.
	ActiveSubscriptions int
}

// Recorder receives bus measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	EventEmitted(name string)
	SyncHandlerFailed(name string)
	AsyncSettled(name string, succeeded, failed int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EventEmitted(string)                          {}
func (nopRecorder) SyncHandlerFailed(string)                     {}
func (nopRecorder) AsyncSettled(string, int, int, time.Duration) {}
