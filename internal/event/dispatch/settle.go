package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Settler runs handlers concurrently and waits for all of them.
type Settler struct {
	executor *Executor

	dispatched  atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewSettler creates a settler whose handlers run through an executor built
// from opts.
func NewSettler(opts ...ExecutorOption) *Settler {
	return &Settler{executor: NewExecutor(opts...)}
}

// SettleAll starts every handler in its own goroutine, in slice order, and
// blocks until all have returned. results[i] belongs to handlers[i].
func (s *Settler) SettleAll(ctx context.Context, event any, handlers []Handler) []Result {
	results := make([]Result, len(handlers))
	if len(handlers) == 0 {
		return results
	}

	// Outcomes are recorded per slot, so one failure cannot cancel or hide
	// another.
	var wg sync.WaitGroup
	for i, h := range handlers {
		wg.Go(func() {
			results[i] = s.executor.Execute(ctx, event, h)
		})
	}
	wg.Wait()

	for _, r := range results {
		s.record(r)
	}
	return results
}

func (s *Settler) record(r Result) {
	s.dispatched.Add(1)
	s.totalTimeNs.Add(r.Duration.Nanoseconds())
	switch {
	case r.Panicked:
		s.panicked.Add(1)
	case r.Err != nil:
		s.failed.Add(1)
	default:
		s.succeeded.Add(1)
	}
}

// Stats contains settler statistics.
type Stats struct {
	Dispatched    uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	TotalDuration time.Duration
}

// Stats returns a snapshot of the settler's counters.
func (s *Settler) Stats() Stats {
	return Stats{
		Dispatched:    s.dispatched.Load(),
		Succeeded:     s.succeeded.Load(),
		Failed:        s.failed.Load(),
		Panicked:      s.panicked.Load(),
		TotalDuration: time.Duration(s.totalTimeNs.Load()),
	}
}
