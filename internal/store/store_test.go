package store

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemory_ShallowMerge(t *testing.T) {
	m := NewMemory(map[string]any{"theme": "dark", "user": map[string]any{"name": "a"}})

	m.SetState(map[string]any{"user": map[string]any{"id": 7}, "count": 3})

	want := map[string]any{
		"theme": "dark",
		"user":  map[string]any{"id": 7},
		"count": 3,
	}
	if diff := cmp.Diff(want, m.GetState()); diff != "" {
		t.Errorf("GetState() mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_GetStateIsCopy(t *testing.T) {
	m := NewMemory(nil)
	m.SetState(map[string]any{"a": 1})

	s := m.GetState()
	s["a"] = 2
	s["b"] = 3

	if v, _ := m.Get("a"); v != 1 {
		t.Errorf("a = %v, want 1", v)
	}
	if _, ok := m.Get("b"); ok {
		t.Error("mutating the copy added a key")
	}
}

func TestMemory_Subscribe(t *testing.T) {
	m := NewMemory(nil)

	var got []Change
	sub := m.Subscribe(func(c Change) { got = append(got, c) })

	m.SetState(map[string]any{"b": 2, "a": 1})
	m.SetState(nil)
	sub.Unsubscribe()
	sub.Unsubscribe()
	m.SetState(map[string]any{"c": 3})

	if len(got) != 1 {
		t.Fatalf("observer called %d times, want 1", len(got))
	}
	if diff := cmp.Diff([]string{"a", "b"}, got[0].Keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 2}, got[0].State); diff != "" {
		t.Errorf("State mismatch (-want +got):\n%s", diff)
	}
	if m.ObserverCount() != 0 {
		t.Errorf("ObserverCount() = %d, want 0", m.ObserverCount())
	}
}

func TestMemory_ObserverMaySetState(t *testing.T) {
	m := NewMemory(nil)
	m.Subscribe(func(c Change) {
		if _, ok := c.State["derived"]; !ok {
			m.SetState(map[string]any{"derived": true})
		}
	})

	m.SetState(map[string]any{"x": 1})
	if v, _ := m.Get("derived"); v != true {
		t.Error("observer write was lost")
	}
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.SetState(map[string]any{"k": i})
			_ = m.GetState()
		}(i)
	}
	wg.Wait()
	if _, ok := m.Get("k"); !ok {
		t.Error("missing key after concurrent writes")
	}
}

var _ Store = (*Memory)(nil)
