package event

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestGroup_CloseRemovesAll(t *testing.T) {
	bus := NewBus(WithLogger(zerolog.Nop()))
	g := NewGroup(bus)

	var calls atomic.Int32
	h := func(context.Context, Event) error { calls.Add(1); return nil }
	if _, err := g.On("a", h); err != nil {
		t.Fatal(err)
	}
	if _, err := g.OnAsync("a", h); err != nil {
		t.Fatal(err)
	}
	if g.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", g.Count())
	}

	g.Close()
	g.Close()

	bus.Emit(context.Background(), "a", nil)
	if calls.Load() != 0 {
		t.Errorf("handlers ran %d times after Close", calls.Load())
	}
	if _, err := g.On("a", h); err != ErrGroupClosed {
		t.Errorf("On after Close error = %v, want ErrGroupClosed", err)
	}
	if bus.Stats().ActiveSubscriptions != 0 {
		t.Errorf("ActiveSubscriptions = %d, want 0", bus.Stats().ActiveSubscriptions)
	}
}

func TestGroup_PropagatesValidation(t *testing.T) {
	g := NewGroup(NewBus(WithLogger(zerolog.Nop())))
	if _, err := g.On("a", nil); err != ErrNilHandler {
		t.Errorf("error = %v, want ErrNilHandler", err)
	}
	if g.Count() != 0 {
		t.Errorf("failed subscription was tracked")
	}
}
