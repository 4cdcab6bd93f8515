// Package dispatch runs event handlers with panic recovery and collects
// their outcomes.
//
// Executor runs a single handler and converts a panic into a Result instead
// of letting it unwind the caller. Settler starts a set of handlers
// concurrently, one goroutine each in slice order, and waits for every one
// of them to finish before returning (settle-all). A failing or panicking
// handler never prevents its siblings from running.
//
// There is no timeout: a handler that never returns keeps SettleAll
// waiting. Handlers that may block should watch ctx.
//
// # Usage
//
//	settler := dispatch.NewSettler()
//	results := settler.SettleAll(ctx, evt, handlers)
//	for _, r := range results {
//	    if !r.IsSuccess() {
//	        // r.Err holds the handler error, or a *PanicError
//	    }
//	}
package dispatch
