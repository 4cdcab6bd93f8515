package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/event/topic"
	"github.com/dshills/dashcore/internal/log"
	"github.com/dshills/dashcore/internal/tracing"
)

// DefaultTraceLimit bounds the in-memory trace history.
const DefaultTraceLimit = 1024

// TraceEntry is one recorded emission.
type TraceEntry struct {
	Name string
	Meta tracing.Meta
}

// TraceRecorder subscribes to every event and keeps a bounded history. Each
// event is also written to the output as a JSON line.
type TraceRecorder struct {
	out   zerolog.Logger
	limit int
	group *event.Group

	mu      sync.Mutex
	entries []TraceEntry
}

// NewTraceRecorder subscribes a recorder to every event on bus. A nil w
// keeps the history only; limit <= 0 uses DefaultTraceLimit.
func NewTraceRecorder(bus *event.Bus, w io.Writer, limit int) (*TraceRecorder, error) {
	if limit <= 0 {
		limit = DefaultTraceLimit
	}
	out := zerolog.Nop()
	if w != nil {
		out = zerolog.New(w)
	}
	tr := &TraceRecorder{
		out:   out,
		limit: limit,
		group: event.NewGroup(bus),
	}
	if _, err := tr.group.On(topic.WildcardMulti, tr.record); err != nil {
		return nil, err
	}
	return tr, nil
}

func (tr *TraceRecorder) record(_ context.Context, evt event.Event) error {
	tr.mu.Lock()
	tr.entries = append(tr.entries, TraceEntry{Name: string(evt.Name), Meta: evt.Meta})
	if over := len(tr.entries) - tr.limit; over > 0 {
		tr.entries = append(tr.entries[:0:0], tr.entries[over:]...)
	}
	tr.mu.Unlock()

	e := tr.out.Log().
		Str(log.FieldEvent, string(evt.Name)).
		Str(log.FieldEventID, evt.Meta.EventID).
		Str(log.FieldCorrelationID, evt.Meta.CorrelationID)
	if evt.Meta.CausationID != "" {
		e = e.Str(log.FieldCausationID, evt.Meta.CausationID)
	}
	e.Time("at", evt.Meta.Timestamp).Send()
	return nil
}

// Entries returns the recorded history, oldest first.
func (tr *TraceRecorder) Entries() []TraceEntry {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]TraceEntry(nil), tr.entries...)
}

// Correlation returns the recorded events of one correlation, oldest first.
func (tr *TraceRecorder) Correlation(id string) []TraceEntry {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var out []TraceEntry
	for _, e := range tr.entries {
		if e.Meta.CorrelationID == id {
			out = append(out, e)
		}
	}
	return out
}

// Close unsubscribes the recorder. The history stays readable.
func (tr *TraceRecorder) Close() {
	tr.group.Close()
}
