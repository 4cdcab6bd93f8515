// Package event provides the event-correlation bus every dashboard feature
// is built on.
//
// Publishers emit named events; subscribers register either synchronous or
// asynchronous handlers for a name or a pattern (see package topic). The bus
// stamps every emission with tracing metadata (package tracing) so a user
// action can be reconstructed from the events it caused.
//
// # Delivery
//
// Emit runs in three phases:
//
//  1. Synchronous handlers run in the emitter's goroutine, in registration
//     order. They are meant for side-effect-only UI wiring. An error aborts
//     the emission and is returned to the caller wrapped in a HandlerError;
//     a panic is not recovered.
//  2. Asynchronous handlers are started concurrently, in registration order,
//     and Emit waits until every one of them has finished.
//  3. Async outcomes are partitioned into a success count and the list of
//     errors. A failing async handler never stops its siblings, and the
//     failures are logged once per emission.
//
// For every emission, DispatchResult.Success+len(DispatchResult.Errors)
// equals the number of async subscriptions matching the name at dispatch
// time.
//
// # Correlation
//
//	ctx, _ := bus.StartCorrelation(ctx)
//	r1, _ := bus.Emit(ctx, "task:created", task)   // starts the chain
//	r2, _ := bus.Emit(ctx, "task:scheduled", task) // caused by r1
//
// Handlers receive a context chained to the event they are handling, so
// anything they emit continues the same correlation. EmitChained sets the
// parent explicitly, letting one event fan out into several children.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//
//	sub, err := bus.OnAsync("goal:updated", func(ctx context.Context, evt event.Event) error {
//	    return recalc(ctx, evt.Detail)
//	})
//	defer sub.Unsubscribe()
//
//	res, err := bus.Emit(ctx, "goal:updated", goal)
//	if err != nil {
//	    // a synchronous handler failed
//	}
//	if res.Failed() {
//	    // some async handlers failed; res.Errors lists them
//	}
//
// # Thread Safety
//
// The Bus is safe for concurrent use. Subscriptions may be added or removed
// while events are being emitted; an emission uses the subscriptions that
// matched when it started. The bus does not order emissions coming from
// different goroutines.
package event
