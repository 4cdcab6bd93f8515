package tracing

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Identifier prefixes.
const (
	EventIDPrefix       = "evt_"
	CorrelationIDPrefix = "cor_"
)

const suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Meta is the tracing metadata stamped on every emitted event.
type Meta struct {
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId"`
	CausationID   string    `json:"causationId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// IsZero reports whether m carries no identifiers.
func (m Meta) IsZero() bool {
	return m.EventID == "" && m.CorrelationID == ""
}

var eventSeq atomic.Uint64

// NewEventID returns an identifier unique for the lifetime of the process:
// a monotonically increasing counter followed by a random suffix.
func NewEventID() string {
	n := eventSeq.Add(1)
	return EventIDPrefix + strconv.FormatUint(n, 10) + "_" + gonanoid.MustGenerate(suffixAlphabet, 8)
}

// NewCorrelationID returns a fresh correlation identifier.
func NewCorrelationID() string {
	return CorrelationIDPrefix + uuid.NewString()
}

// scope is the mutable chain state of one correlation. A handler scope
// links to the caller's scope of the same correlation through outer.
type scope struct {
	id    string
	outer *scope

	mu   sync.Mutex
	last string
}

// advance records eventID as the newest link and returns the previous one.
// Enclosing scopes of the same correlation see the link too, so the caller
// continues from whatever its handlers emitted.
func (s *scope) advance(eventID string) string {
	s.mu.Lock()
	prev := s.last
	s.last = eventID
	s.mu.Unlock()

	for o := s.outer; o != nil; o = o.outer {
		o.mu.Lock()
		o.last = eventID
		o.mu.Unlock()
	}
	return prev
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) *scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// StartCorrelation mints a correlation ID and returns a context carrying a
// new scope for it. Any scope already present in ctx is shadowed.
func StartCorrelation(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &scope{id: NewCorrelationID()}
	return context.WithValue(ctx, scopeKey{}, s), s.id
}

// WithParent returns a context whose emissions continue the chain from
// parent: they share its correlation and the first one is caused by it.
// When ctx already carries a scope of that correlation, emissions made
// through the returned context also advance it.
func WithParent(ctx context.Context, parent Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if parent.CorrelationID == "" {
		return ctx
	}
	s := &scope{id: parent.CorrelationID, last: parent.EventID}
	if outer := scopeFrom(ctx); outer != nil && outer.id == parent.CorrelationID {
		s.outer = outer
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// CorrelationID returns the correlation active in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if s := scopeFrom(ctx); s != nil {
		return s.id
	}
	return ""
}

// LastEventID returns the most recent event emitted in the scope of ctx.
func LastEventID(ctx context.Context) string {
	s := scopeFrom(ctx)
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Next builds the metadata for a new emission in ctx and advances the
// scope's chain. Without a scope the event starts a fresh correlation.
func Next(ctx context.Context, now time.Time) Meta {
	m := Meta{EventID: NewEventID(), Timestamp: now}
	if s := scopeFrom(ctx); s != nil {
		m.CorrelationID = s.id
		m.CausationID = s.advance(m.EventID)
		return m
	}
	m.CorrelationID = NewCorrelationID()
	return m
}

// ChildOf builds metadata for an event explicitly caused by parent. The
// child joins the parent's correlation; a parent without one yields a fresh
// correlation.
func ChildOf(parent Meta, now time.Time) Meta {
	m := Meta{
		EventID:     NewEventID(),
		CausationID: parent.EventID,
		Timestamp:   now,
	}
	if parent.CorrelationID != "" {
		m.CorrelationID = parent.CorrelationID
	} else {
		m.CorrelationID = NewCorrelationID()
	}
	return m
}
