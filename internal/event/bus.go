package event

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/event/dispatch"
	"github.com/dshills/dashcore/internal/event/topic"
	"github.com/dshills/dashcore/internal/log"
	"github.com/dshills/dashcore/internal/tracing"
)

// Bus is the publish/subscribe fabric. The zero value is not usable; create
// one with NewBus.
type Bus struct {
	registry *Registry
	settler  *dispatch.Settler

	logger   zerolog.Logger
	recorder Recorder
	now      func() time.Time

	eventsEmitted  atomic.Uint64
	syncFailures   atomic.Uint64
	asyncSucceeded atomic.Uint64
	asyncFailed    atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...Option) *Bus {
	cfg := defaultBusConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Bus{
		registry: NewRegistry(),
		logger:   cfg.logger,
		recorder: cfg.recorder,
		now:      cfg.now,
	}
	b.settler = dispatch.NewSettler(dispatch.WithPanicHandler(b.logPanic))
	return b
}

// On registers a synchronous handler for name, which may be a pattern.
func (b *Bus) On(name topic.Topic, h SyncHandler) (Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !name.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, name)
	}
	sub := &subscription{pattern: name, mode: DeliverySync, sync: h}
	b.registry.add(sub)
	return sub, nil
}

// OnAsync registers an asynchronous handler for name, which may be a pattern.
func (b *Bus) OnAsync(name topic.Topic, h AsyncHandler) (Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if !name.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, name)
	}
	sub := &subscription{pattern: name, mode: DeliveryAsync, async: h}
	b.registry.add(sub)
	return sub, nil
}

// Off removes a synchronous subscription. Removing it twice is a no-op.
func (b *Bus) Off(sub Subscription) error {
	return b.off(sub, DeliverySync)
}

// OffAsync removes an asynchronous subscription. Removing it twice is a no-op.
func (b *Bus) OffAsync(sub Subscription) error {
	return b.off(sub, DeliveryAsync)
}

func (b *Bus) off(sub Subscription, mode DeliveryMode) error {
	s, ok := sub.(*subscription)
	if !ok || s == nil || !b.registry.owns(s) {
		return ErrInvalidSubscription
	}
	if s.mode != mode {
		return fmt.Errorf("%w: %s subscription %s", ErrInvalidSubscription, s.mode, s.id)
	}
	s.Unsubscribe()
	return nil
}

// StartCorrelation begins a new correlation and returns a context carrying
// it. Emissions made with the returned context form one linear chain.
func (b *Bus) StartCorrelation(ctx context.Context) (context.Context, string) {
	return tracing.StartCorrelation(ctx)
}

// CurrentCorrelationID returns the correlation active in ctx, or "".
func (b *Bus) CurrentCorrelationID(ctx context.Context) string {
	return tracing.CorrelationID(ctx)
}

// Emit publishes detail under name. The correlation and causation are taken
// from ctx; without an active correlation the event starts a new one.
//
// The returned error is non-nil only when a synchronous handler failed, in
// which case no async handler ran. Async failures are reported in the
// result instead.
func (b *Bus) Emit(ctx context.Context, name topic.Topic, detail any) (DispatchResult, error) {
	if err := validateName(name); err != nil {
		return DispatchResult{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	evt := Event{Name: name, Detail: detail, Meta: tracing.Next(ctx, b.now())}
	return b.dispatch(ctx, evt)
}

// EmitChained publishes detail as a child of parent: the new event joins the
// parent's correlation and records the parent as its cause, regardless of
// the correlation active in ctx.
func (b *Bus) EmitChained(ctx context.Context, name topic.Topic, detail any, parent Event) (DispatchResult, error) {
	if err := validateName(name); err != nil {
		return DispatchResult{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	evt := Event{Name: name, Detail: detail, Meta: tracing.ChildOf(parent.Meta, b.now())}
	return b.dispatch(ctx, evt)
}

func validateName(name topic.Topic) error {
	if !name.IsValid() || name.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, name)
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, evt Event) (DispatchResult, error) {
	result := DispatchResult{Meta: evt.Meta}
	name := string(evt.Name)

	b.eventsEmitted.Add(1)
	b.recorder.EventEmitted(name)

	// Whatever handlers emit is caused by this event.
	hctx := tracing.WithParent(ctx, evt.Meta)

	for _, sub := range b.registry.Match(evt.Name, DeliverySync) {
		if err := sub.sync(hctx, evt); err != nil {
			b.syncFailures.Add(1)
			b.recorder.SyncHandlerFailed(name)
			return result, &HandlerError{SubscriptionID: sub.id, Topic: name, Err: err}
		}
	}

	subs := b.registry.Match(evt.Name, DeliveryAsync)
	if len(subs) == 0 {
		return result, nil
	}

	handlers := make([]dispatch.Handler, len(subs))
	for i, sub := range subs {
		h := sub.async
		handlers[i] = dispatch.HandlerFunc(func(ctx context.Context, _ any) error {
			return h(ctx, evt)
		})
	}

	start := time.Now()
	for _, r := range b.settler.SettleAll(hctx, evt, handlers) {
		if r.IsSuccess() {
			result.Success++
			continue
		}
		result.Errors = append(result.Errors, r.Err)
	}
	b.asyncSucceeded.Add(uint64(result.Success))
	b.asyncFailed.Add(uint64(len(result.Errors)))
	b.recorder.AsyncSettled(name, result.Success, len(result.Errors), time.Since(start))

	if result.Failed() {
		b.logger.Error().
			Str(log.FieldEvent, name).
			Str(log.FieldEventID, evt.Meta.EventID).
			Str(log.FieldCorrelationID, evt.Meta.CorrelationID).
			Str(log.FieldCausationID, evt.Meta.CausationID).
			Time("event_time", evt.Meta.Timestamp).
			Int("succeeded", result.Success).
			Errs("errors", result.Errors).
			Msg("async handlers failed")
	}

	return result, nil
}

// logPanic reports the stack of a panicking async handler. The failure
// itself is still counted and logged with the emission's other errors.
func (b *Bus) logPanic(event any, value any, stack []byte) {
	e := b.logger.Debug().Interface("panic", value).Bytes("stack", stack)
	if evt, ok := event.(Event); ok {
		e = e.Str(log.FieldEvent, string(evt.Name)).Str(log.FieldEventID, evt.Meta.EventID)
	}
	e.Msg("async handler panicked")
}

// SubscriberCount returns how many sync and async subscriptions currently
// match name.
func (b *Bus) SubscriberCount(name topic.Topic) (syncCount, asyncCount int) {
	return b.registry.CountMatching(name)
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	return Stats{
		EventsEmitted:       b.eventsEmitted.Load(),
		SyncFailures:        b.syncFailures.Load(),
		AsyncSucceeded:      b.asyncSucceeded.Load(),
		AsyncFailed:         b.asyncFailed.Load(),
		ActiveSubscriptions: b.registry.Count(),
	}
}

// Registry returns the underlying subscription registry.
func (b *Bus) Registry() *Registry {
	return b.registry
}
