package slot

import (
	"sort"
	"sync"

	"golang.org/x/net/html"
)

// MarkerAttr is the attribute that declares a slot container.
const MarkerAttr = "data-slot"

// Registry maps slot IDs to their containers. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	slots map[string][]*html.Node
	known map[string]map[*html.Node]struct{}
}

// NewRegistry creates an empty slot registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[string][]*html.Node),
		known: make(map[string]map[*html.Node]struct{}),
	}
}

// RegisterFromDOM walks root depth-first in document order and registers
// every element carrying MarkerAttr, root included. Containers already
// registered under the same slot are skipped. It returns the number of newly
// registered containers.
func (r *Registry) RegisterFromDOM(root *html.Node) int {
	if root == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id, ok := Attr(n, MarkerAttr); ok && id != "" {
				if r.addLocked(id, n) {
					added++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return added
}

// Register appends node to slotID. It returns false if node is nil, the ID
// is empty, or the node is already registered under slotID.
func (r *Registry) Register(slotID string, node *html.Node) bool {
	if slotID == "" || node == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(slotID, node)
}

func (r *Registry) addLocked(slotID string, node *html.Node) bool {
	seen := r.known[slotID]
	if seen == nil {
		seen = make(map[*html.Node]struct{})
		r.known[slotID] = seen
	}
	if _, dup := seen[node]; dup {
		return false
	}
	seen[node] = struct{}{}
	r.slots[slotID] = append(r.slots[slotID], node)
	return true
}

// Get returns the first container of slotID, or nil.
func (r *Registry) Get(slotID string) *html.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if nodes := r.slots[slotID]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// All returns a copy of the containers of slotID in registration order.
// The result is empty, never nil.
func (r *Registry) All(slotID string) []*html.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := r.slots[slotID]
	out := make([]*html.Node, len(nodes))
	copy(out, nodes)
	return out
}

// IDs returns the registered slot IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.slots))
	for id := range r.slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the total number of registered containers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, nodes := range r.slots {
		n += len(nodes)
	}
	return n
}

// Remove forgets every container of slotID.
func (r *Registry) Remove(slotID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.slots, slotID)
	delete(r.known, slotID)
}

// Clear forgets every slot.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.slots = make(map[string][]*html.Node)
	r.known = make(map[string]map[*html.Node]struct{})
}
