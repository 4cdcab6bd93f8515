package event

import (
	"context"
	"testing"
)

func TestRegistry_MatchKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, Event) error { return nil }

	a := &subscription{pattern: "x:*", mode: DeliveryAsync, async: noop}
	b := &subscription{pattern: "x:y", mode: DeliveryAsync, async: noop}
	c := &subscription{pattern: "x:y", mode: DeliverySync, sync: noop}
	r.add(a)
	r.add(b)
	r.add(c)

	got := r.Match("x:y", DeliveryAsync)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("Match() = %v", got)
	}
	if s, as := r.CountMatching("x:y"); s != 1 || as != 2 {
		t.Errorf("CountMatching() = %d,%d want 1,2", s, as)
	}
	if len(r.Topics()) != 2 {
		t.Errorf("Topics() = %v", r.Topics())
	}
}

func TestRegistry_RemoveAndClear(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, Event) error { return nil }
	a := &subscription{pattern: "a", mode: DeliverySync, sync: noop}
	b := &subscription{pattern: "b", mode: DeliverySync, sync: noop}
	r.add(a)
	r.add(b)

	if a.ID() == b.ID() {
		t.Fatal("duplicate subscription ids")
	}
	if !r.Remove(a.ID()) {
		t.Error("Remove() = false for known id")
	}
	if r.Remove(a.ID()) {
		t.Error("Remove() = true for removed id")
	}
	if a.IsActive() {
		t.Error("removed subscription still active")
	}

	r.Clear()
	if r.Count() != 0 || b.IsActive() {
		t.Errorf("Clear() left %d subscriptions", r.Count())
	}
}
