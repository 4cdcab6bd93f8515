package event

import (
	"sync"

	"github.com/dshills/dashcore/internal/event/topic"
)

// Group tracks the subscriptions made by one component so they can be
// removed together when the component shuts down.
type Group struct {
	bus *Bus

	mu     sync.Mutex
	subs   []Subscription
	closed bool
}

// NewGroup creates an empty group subscribing through bus.
func NewGroup(bus *Bus) *Group {
	return &Group{bus: bus}
}

// On registers a synchronous handler and tracks it.
func (g *Group) On(name topic.Topic, h SyncHandler) (Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrGroupClosed
	}
	sub, err := g.bus.On(name, h)
	if err != nil {
		return nil, err
	}
	g.subs = append(g.subs, sub)
	return sub, nil
}

// OnAsync registers an asynchronous handler and tracks it.
func (g *Group) OnAsync(name topic.Topic, h AsyncHandler) (Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, ErrGroupClosed
	}
	sub, err := g.bus.OnAsync(name, h)
	if err != nil {
		return nil, err
	}
	g.subs = append(g.subs, sub)
	return sub, nil
}

// Count returns the number of tracked subscriptions.
func (g *Group) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Close removes every tracked subscription and rejects new ones.
func (g *Group) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	for _, sub := range g.subs {
		sub.Unsubscribe()
	}
	g.subs = nil
}
