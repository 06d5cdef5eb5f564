package trace

import (
	"sync/atomic"
	"time"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

// emit stamps ev and hands it to t if t's level lets it through.
func emit(t Tracer, ev *Event) {
	if !t.Level().allows(ev) {
		return
	}
	ev.Time = time.Now()
	ev.Seq = seq.Add(1)
	t.Emit(ev)
}

// Span tracks one timed operation. A nil or disabled span is safe to use.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	offset  int
	bytes   int
	count   int
	extra   map[string]string
}

// Begin starts a span under parent (0 for a root). The begin event is only
// emitted when the level shows scope, but the span is live whenever the
// tracer is, so a failure can still be reported at error level.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !Enabled(t) {
		return nil
	}
	s := &Span{
		tracer:  t,
		id:      spanIDs.Add(1),
		parent:  parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
		offset:  NoOffset,
	}
	emit(t, &Event{Kind: KindSpanBegin, Scope: scope, SpanID: s.id, ParentID: parent, Name: name, Offset: NoOffset})
	return s
}

// At records where in the section the span starts.
func (s *Span) At(offset int) *Span {
	if s != nil {
		s.offset = offset
	}
	return s
}

// Consumed records how many bytes and records the span read or wrote.
func (s *Span) Consumed(bytes, records int) *Span {
	if s != nil {
		s.bytes, s.count = bytes, records
	}
	return s
}

// WithExtra adds a free-form key to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// End emits the end event and returns the span's duration.
func (s *Span) End(detail string) time.Duration {
	return s.end(detail, false)
}

// Fail ends the span as failed. Failed document spans pass every level above
// off and trigger the ring tracer's dump.
func (s *Span) Fail(err error) time.Duration {
	detail := "failed"
	if err != nil {
		detail = err.Error()
	}
	return s.end(detail, true)
}

func (s *Span) end(detail string, failed bool) time.Duration {
	if s == nil {
		return 0
	}
	dur := time.Since(s.started)
	emit(s.tracer, &Event{
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
		Failed:   failed,
		Offset:   s.offset,
		Bytes:    s.bytes,
		Count:    s.count,
		Extra:    s.extra,
	})
	return dur
}

// ID returns the span id, 0 for a nil span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event under parent.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	PointAt(t, scope, name, detail, parent, NoOffset)
}

// PointAt emits an instant event tied to a byte offset.
func PointAt(t Tracer, scope Scope, name, detail string, parent uint64, offset int) {
	if !Enabled(t) {
		return
	}
	emit(t, &Event{Kind: KindPoint, Scope: scope, ParentID: parent, Name: name, Detail: detail, Offset: offset})
}
