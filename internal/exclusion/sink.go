// Package exclusion provides the mechanisms that keep output from concurrent
// producers from interleaving: an advisory lock file shared between
// processes, or no exclusion at all.
package exclusion

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"outmux/internal/fault"
	"outmux/internal/message"
)

// Sink receives formatted messages. A single Emit call is written as one
// unit relative to other producers sharing the same backend.
type Sink interface {
	Emit(msgs ...message.Message) error
	Close() error
}

// PartialError reports a batch that failed after its first Delivered
// messages had already been handed to the backend.
type PartialError struct {
	Delivered int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("delivered %d message(s): %v", e.Delivered, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Delivered returns how many leading messages of a failed batch reached the
// backend. Errors without that information count as zero.
func Delivered(err error) int {
	var pe *PartialError
	if errors.As(err, &pe) {
		return pe.Delivered
	}
	return 0
}

// Direct writes straight to the process streams without cross-process
// exclusion. It is the fallback when no backend can be established.
type Direct struct {
	mu      sync.Mutex
	streams message.Streams
}

// NewDirect returns a Direct sink writing to streams. Nil writers default to
// os.Stdout and os.Stderr.
func NewDirect(streams message.Streams) *Direct {
	if streams.Primary == nil {
		streams.Primary = os.Stdout
	}
	if streams.Diagnostic == nil {
		streams.Diagnostic = os.Stderr
	}
	return &Direct{streams: streams}
}

// Emit writes each message to its destination.
func (d *Direct) Emit(msgs ...message.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, msg := range msgs {
		if _, err := d.streams.For(msg.Dest).Write([]byte(msg.Text)); err != nil {
			return fault.New(fault.Transport, fmt.Sprintf("write %s", msg.Dest),
				&PartialError{Delivered: i, Err: err})
		}
	}
	return nil
}

// Close is a no-op; the process streams stay open.
func (d *Direct) Close() error {
	return nil
}
