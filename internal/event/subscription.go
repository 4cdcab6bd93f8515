package event

import (
	"sync/atomic"

	"github.com/dshills/dashcore/internal/event/topic"
)

// Subscription is the handle returned by On and OnAsync. It is owned by the
// caller; unsubscribing removes exactly the handler it was returned for.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Topic returns the subscribed name or pattern.
	Topic() topic.Topic

	// Mode returns the delivery mode of the handler.
	Mode() DeliveryMode

	// IsActive returns true until the subscription is removed.
	IsActive() bool

	// Unsubscribe removes the handler. Calling it again is a no-op.
	Unsubscribe()
}

// subscription is the internal implementation of Subscription.
type subscription struct {
	id       string
	pattern  topic.Topic
	mode     DeliveryMode
	sync     SyncHandler
	async    AsyncHandler
	registry *Registry

	cancelled atomic.Bool
}

func (s *subscription) ID() string         { return s.id }
func (s *subscription) Topic() topic.Topic { return s.pattern }
func (s *subscription) Mode() DeliveryMode { return s.mode }

func (s *subscription) IsActive() bool {
	return !s.cancelled.Load()
}

func (s *subscription) Unsubscribe() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.registry.Remove(s.id)
	}
}
