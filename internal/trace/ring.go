package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory. When a document span
// ends in failure it writes that span's tree to out and drops those events,
// leaving the ones of other documents loading concurrently in place.
type RingTracer struct {
	mu     sync.Mutex
	wmu    sync.Mutex // serializes dumps
	events []Event
	head   int // next write position
	full   bool
	level  Level
	out    io.Writer
	format Format
}

// NewRingTracer creates a ring of the given capacity. A nil out disables the
// automatic dump; Snapshot still works.
func NewRingTracer(capacity int, level Level, out io.Writer, format Format) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{events: make([]Event, capacity), level: level, out: out, format: format}
}

func (t *RingTracer) Emit(ev *Event) {
	t.mu.Lock()
	t.push(*ev)
	var dump []Event
	if t.out != nil && ev.Kind == KindSpanEnd && ev.Failed && ev.Scope == ScopeDocument {
		dump = t.extractTree(ev.SpanID)
	}
	t.mu.Unlock()

	if len(dump) == 0 {
		return
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()
	for i := range dump {
		// best effort, as for the stream tracer
		_, _ = t.out.Write(FormatEvent(&dump[i], t.format)) //nolint:errcheck
	}
	if f, ok := t.out.(interface{ Flush() error }); ok {
		_ = f.Flush() //nolint:errcheck
	}
}

func (t *RingTracer) push(ev Event) {
	t.events[t.head] = ev
	t.head = (t.head + 1) % len(t.events)
	if t.head == 0 {
		t.full = true
	}
}

// Snapshot returns the stored events in chronological order.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ordered()
}

func (t *RingTracer) ordered() []Event {
	if !t.full {
		out := make([]Event, t.head)
		copy(out, t.events[:t.head])
		return out
	}
	out := make([]Event, len(t.events))
	n := copy(out, t.events[t.head:])
	copy(out[n:], t.events[:t.head])
	return out
}

// extractTree removes the events of span root and its descendants from the
// ring and returns them in order. Children begin after their parent, so one
// forward pass collects the whole tree.
func (t *RingTracer) extractTree(root uint64) []Event {
	all := t.ordered()
	inTree := map[uint64]bool{root: true}
	var tree, rest []Event
	for _, ev := range all {
		switch {
		case inTree[ev.SpanID] && ev.SpanID != 0:
			tree = append(tree, ev)
		case inTree[ev.ParentID]:
			if ev.SpanID != 0 {
				inTree[ev.SpanID] = true
			}
			tree = append(tree, ev)
		default:
			rest = append(rest, ev)
		}
	}
	clear(t.events)
	t.head, t.full = 0, false
	for _, ev := range rest {
		t.push(ev)
	}
	return tree
}

func (t *RingTracer) Flush() error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if f, ok := t.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (t *RingTracer) Close() error {
	if c, ok := t.out.(io.Closer); ok {
		t.wmu.Lock()
		defer t.wmu.Unlock()
		return c.Close()
	}
	return t.Flush()
}

func (t *RingTracer) Level() Level { return t.level }
