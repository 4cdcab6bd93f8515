// Package tracing mints event and correlation identifiers and carries the
// active correlation scope through a context.Context.
//
// A correlation groups the causally related events of one logical
// operation. Within a scope started with StartCorrelation, every emission is
// caused by the previous one, forming a linear chain:
//
//	ctx, _ := tracing.StartCorrelation(ctx)
//	m1 := tracing.Next(ctx, time.Now()) // CausationID == ""
//	m2 := tracing.Next(ctx, time.Now()) // CausationID == m1.EventID
//
// Handlers receive a context derived with WithParent, so whatever they emit
// continues the chain from the event that triggered them. Those emissions
// also advance the caller's scope: the caller's next event is caused by the
// last one emitted anywhere in its correlation. ChildOf builds
// metadata for an explicit parent, which is how one event fans out into
// several children.
//
// The scope lives in the context rather than in a shared bus, so two
// operations started concurrently never see each other's chain.
package tracing
