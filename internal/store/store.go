// Package store provides the shared application state plugins read from and
// write to.
//
// The state is a flat map of top-level keys. SetState merges shallowly: each
// key in the partial map replaces the previous value of that key. Observers
// registered with Subscribe are notified after every change, outside the
// store's lock, in subscription order.
package store

import (
	"maps"
	"sort"
	"sync"
)

// Store is the shared state handed to plugins through their mount context.
type Store interface {
	// GetState returns a shallow copy of the current state.
	GetState() map[string]any

	// SetState merges partial into the state.
	SetState(partial map[string]any)
}

// Change describes one SetState call.
type Change struct {
	// Keys lists the top-level keys that were written, sorted.
	Keys []string

	// State is a shallow copy of the state after the change.
	State map[string]any
}

// Observer is called after the state changed.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id    uint64
	store *Memory
}

// Unsubscribe removes this subscription. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.store != nil {
		s.store.unsubscribe(s.id)
	}
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	state     map[string]any
	observers map[uint64]Observer
	order     []uint64
	nextID    uint64
}

// NewMemory creates a store holding a copy of initial.
func NewMemory(initial map[string]any) *Memory {
	state := make(map[string]any, len(initial))
	maps.Copy(state, initial)
	return &Memory{
		state:     state,
		observers: make(map[uint64]Observer),
	}
}

// GetState returns a shallow copy of the current state.
func (m *Memory) GetState() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.state)
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.state[key]
	return v, ok
}

// SetState merges partial into the state and notifies observers.
func (m *Memory) SetState(partial map[string]any) {
	if len(partial) == 0 {
		return
	}

	m.mu.Lock()
	keys := make([]string, 0, len(partial))
	for k, v := range partial {
		m.state[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := maps.Clone(m.state)
	observers := make([]Observer, 0, len(m.order))
	for _, id := range m.order {
		observers = append(observers, m.observers[id])
	}
	m.mu.Unlock()

	for _, obs := range observers {
		obs(Change{Keys: keys, State: maps.Clone(snapshot)})
	}
}

// Subscribe registers an observer for every change.
func (m *Memory) Subscribe(observer Observer) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.observers[id] = observer
	m.order = append(m.order, id)
	return &Subscription{id: id, store: m}
}

func (m *Memory) unsubscribe(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.observers[id]; !ok {
		return
	}
	delete(m.observers, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

// ObserverCount returns the number of active observers.
func (m *Memory) ObserverCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}
