package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a connection, stream or acquisition.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks its end.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
	// KindError reports a failure; emitted at every level except off.
	KindError
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeProcess covers the lifetime of the CLI or server.
	ScopeProcess Scope = iota + 1
	// ScopeConnection covers one producer connection or lock acquisition.
	ScopeConnection
	// ScopeRecord covers one record or parsed body.
	ScopeRecord
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeProcess:
		return "process"
	case ScopeConnection:
		return "connection"
	case ScopeRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // span identifier
	ParentID uint64            // parent span (0 if root)
	Name     string            // e.g. "serve", "conn", "body"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}
