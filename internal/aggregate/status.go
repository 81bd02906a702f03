package aggregate

import (
	"strings"

	"outmux/internal/message"
)

// StatusKind identifies a server status notification.
type StatusKind uint8

const (
	// StatusConnOpened is sent when a producer connects.
	StatusConnOpened StatusKind = iota + 1
	// StatusRecord is sent after a record has been written.
	StatusRecord
	// StatusConnClosed is sent once every record of an ended producer
	// connection has been written.
	StatusConnClosed
)

// Status describes server activity for observers such as the terminal UI.
type Status struct {
	Kind StatusKind
	Conn uint64
	Dest message.Destination
	// Line is the first line of a written record.
	Line string
	// Err is set when a connection ended on a framing or I/O error.
	Err error
}

// StatusFunc receives status notifications from connection workers and the
// serial writer. It must be goroutine-safe and return quickly.
type StatusFunc func(Status)

func firstLine(payload []byte) string {
	s := string(payload)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
