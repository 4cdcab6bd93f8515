package event

import (
	"strconv"
	"sync"

	"github.com/dshills/dashcore/internal/event/topic"
)

// Registry holds subscriptions in registration order.
// It is safe for concurrent access.
type Registry struct {
	mu   sync.RWMutex
	seq  uint64
	subs []*subscription
	byID map[string]*subscription
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]*subscription),
	}
}

// add assigns an ID to sub and appends it.
func (r *Registry) add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sub.id = "sub_" + strconv.FormatUint(r.seq, 10)
	sub.registry = r
	r.subs = append(r.subs, sub)
	r.byID[sub.id] = sub
}

// Remove removes a subscription by ID. It returns false if the ID is unknown.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	for i, s := range r.subs {
		if s == sub {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			break
		}
	}
	sub.cancelled.Store(true)
	return true
}

// owns reports whether sub was created by this registry.
func (r *Registry) owns(sub *subscription) bool {
	return sub.registry == r
}

// Match returns the subscriptions of the given mode whose pattern matches
// name, in registration order. The returned slice is a copy.
func (r *Registry) Match(name topic.Topic, mode DeliveryMode) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*subscription
	for _, s := range r.subs {
		if s.mode == mode && s.pattern.Matches(name) {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// CountMatching returns how many subscriptions of each mode match name.
func (r *Registry) CountMatching(name topic.Topic) (syncCount, asyncCount int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.subs {
		if !s.pattern.Matches(name) {
			continue
		}
		if s.mode == DeliverySync {
			syncCount++
		} else {
			asyncCount++
		}
	}
	return syncCount, asyncCount
}

// Topics returns the distinct subscribed names and patterns.
func (r *Registry) Topics() []topic.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[topic.Topic]bool)
	var out []topic.Topic
	for _, s := range r.subs {
		if !seen[s.pattern] {
			seen[s.pattern] = true
			out = append(out, s.pattern)
		}
	}
	return out
}

// Clear removes all subscriptions.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.subs {
		s.cancelled.Store(true)
	}
	r.subs = nil
	r.byID = make(map[string]*subscription)
}
