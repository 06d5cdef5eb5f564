package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of the event. Lower values are coarser.
type Scope uint8

const (
	// ScopeCommand is a CLI command or batch run.
	ScopeCommand Scope = iota + 1
	// ScopeDocument is the load or write of one papyrus section.
	ScopeDocument
	// ScopeSection is one table within a section (strings, scripts, arrays...).
	ScopeSection
	// ScopeRecord is a single record or finding.
	ScopeRecord
)

func (s Scope) String() string {
	switch s {
	case ScopeCommand:
		return "command"
	case ScopeDocument:
		return "document"
	case ScopeSection:
		return "section"
	case ScopeRecord:
		return "record"
	default:
		return "unknown"
	}
}

// NoOffset marks an event that is not tied to a byte position.
const NoOffset = -1

// Event is a single trace event. Offset, Bytes and Count describe the part of
// the section the event covers: where it starts, how many bytes it consumed
// and how many records it held.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Failed   bool

	Offset int
	Bytes  int
	Count  int

	Extra map[string]string
}

// HasRange reports whether the event carries a byte range.
func (ev *Event) HasRange() bool { return ev.Offset >= 0 }
