// Package message defines the unit of formatted output exchanged between
// producers and the exclusion backends.
package message

import (
	"fmt"
	"io"
)

// Destination selects the output stream a message is written to.
type Destination uint8

const (
	// Primary carries synthesized status lines (stdout).
	Primary Destination = iota + 1
	// Diagnostic carries raw passthrough text (stderr).
	Diagnostic
)

// String returns the string representation of Destination.
func (d Destination) String() string {
	switch d {
	case Primary:
		return "primary"
	case Diagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

// Valid reports whether d is one of the known destinations.
func (d Destination) Valid() bool {
	return d == Primary || d == Diagnostic
}

// ParseDestination converts a wire tag into a Destination.
func ParseDestination(tag byte) (Destination, error) {
	d := Destination(tag)
	if !d.Valid() {
		return 0, fmt.Errorf("unknown destination tag %d", tag)
	}
	return d, nil
}

// Message is one piece of formatted output. Text is written verbatim.
type Message struct {
	Dest Destination
	Text string
}

// Streams maps destinations to writers.
type Streams struct {
	Primary    io.Writer
	Diagnostic io.Writer
}

// For returns the writer selected by d. Unknown destinations go to the
// diagnostic stream.
func (s Streams) For(d Destination) io.Writer {
	if d == Primary {
		return s.Primary
	}
	return s.Diagnostic
}
