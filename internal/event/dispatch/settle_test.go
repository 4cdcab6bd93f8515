package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExecutor_Success(t *testing.T) {
	e := NewExecutor()
	r := e.Execute(context.Background(), "evt", HandlerFunc(func(ctx context.Context, event any) error {
		return nil
	}))
	if !r.IsSuccess() {
		t.Fatalf("expected success, got %+v", r)
	}
}

func TestExecutor_Error(t *testing.T) {
	boom := errors.New("boom")
	r := NewExecutor().Execute(context.Background(), "evt", HandlerFunc(func(ctx context.Context, event any) error {
		return boom
	}))
	if r.IsSuccess() || r.Panicked {
		t.Fatalf("expected plain failure, got %+v", r)
	}
	if r.Err != boom {
		t.Errorf("Err = %v, want the handler's error value", r.Err)
	}
}

func TestExecutor_PanicRecovered(t *testing.T) {
	var reported atomic.Bool
	e := NewExecutor(WithPanicHandler(func(event any, v any, stack []byte) {
		reported.Store(true)
		if len(stack) == 0 {
			t.Error("panic handler received empty stack")
		}
	}))

	r := e.Execute(context.Background(), "evt", HandlerFunc(func(ctx context.Context, event any) error {
		panic("kaboom")
	}))

	if !r.Panicked {
		t.Fatal("expected Panicked")
	}
	var pe *PanicError
	if !errors.As(r.Err, &pe) {
		t.Fatalf("Err = %T, want *PanicError", r.Err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("panic value = %v", pe.Value)
	}
	if !reported.Load() {
		t.Error("panic handler not called")
	}
}

func TestExecutor_PanicWithError_Unwraps(t *testing.T) {
	sentinel := errors.New("sentinel")
	r := NewExecutor().Execute(context.Background(), nil, HandlerFunc(func(ctx context.Context, event any) error {
		panic(sentinel)
	}))
	if !errors.Is(r.Err, sentinel) {
		t.Errorf("errors.Is(panic error, sentinel) = false")
	}
}

func TestExecutor_BrokenPanicHandler(t *testing.T) {
	e := NewExecutor(WithPanicHandler(func(any, any, []byte) {
		panic("handler of handlers")
	}))
	r := e.Execute(context.Background(), nil, HandlerFunc(func(ctx context.Context, event any) error {
		panic("first")
	}))
	if !r.Panicked {
		t.Error("expected Panicked")
	}
}

func TestSettleAll_Empty(t *testing.T) {
	results := NewSettler().SettleAll(context.Background(), nil, nil)
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestSettleAll_PartialFailure(t *testing.T) {
	s := NewSettler()
	boom := errors.New("boom")
	handlers := []Handler{
		HandlerFunc(func(ctx context.Context, event any) error { return nil }),
		HandlerFunc(func(ctx context.Context, event any) error { return boom }),
		HandlerFunc(func(ctx context.Context, event any) error { panic("x") }),
		HandlerFunc(func(ctx context.Context, event any) error { return nil }),
	}

	results := s.SettleAll(context.Background(), "evt", handlers)
	if len(results) != len(handlers) {
		t.Fatalf("got %d results, want %d", len(results), len(handlers))
	}
	if !results[0].IsSuccess() || !results[3].IsSuccess() {
		t.Error("successful handlers reported as failed")
	}
	if results[1].Err != boom {
		t.Errorf("results[1].Err = %v, want boom", results[1].Err)
	}
	if !results[2].Panicked {
		t.Error("results[2] should be a panic")
	}

	stats := s.Stats()
	if stats.Dispatched != 4 || stats.Succeeded != 2 || stats.Failed != 1 || stats.Panicked != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestSettleAll_RunsConcurrently(t *testing.T) {
	// Each handler waits for all others to start; this only completes if
	// they are started before any of them returns.
	const n = 3
	var ready sync.WaitGroup
	ready.Add(n)
	handlers := make([]Handler, n)
	for i := range handlers {
		handlers[i] = HandlerFunc(func(ctx context.Context, event any) error {
			ready.Done()
			ready.Wait()
			return nil
		})
	}

	done := make(chan []Result)
	go func() { done <- NewSettler().SettleAll(context.Background(), nil, handlers) }()

	select {
	case results := <-done:
		for i, r := range results {
			if !r.IsSuccess() {
				t.Errorf("handler %d failed: %v", i, r.Err)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handlers were not started concurrently")
	}
}

func TestSettleAll_WaitsForSlowHandler(t *testing.T) {
	var finished atomic.Bool
	handlers := []Handler{
		HandlerFunc(func(ctx context.Context, event any) error {
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil
		}),
		HandlerFunc(func(ctx context.Context, event any) error { return errors.New("fast failure") }),
	}
	NewSettler().SettleAll(context.Background(), nil, handlers)
	if !finished.Load() {
		t.Error("SettleAll returned before the slow handler finished")
	}
}
