// Package fault classifies the errors raised while aggregating compiler
// output so callers can decide between aborting, degrading and continuing.
package fault

import (
	"errors"
	"fmt"
	"syscall"
)

// Class represents how an error must be handled.
type Class int

const (
	// Transport is a socket or lock syscall failure. Fatal for the process.
	Transport Class = iota + 1
	// Protocol is a malformed or unknown body. The block is dropped.
	Protocol
	// Producer is a compile unit that reported failure. Only the exit code changes.
	Producer
	// Shape is an input stream that can no longer be parsed structurally.
	Shape
	// Unavailable means exclusion could not be established; output degrades.
	Unavailable
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case Transport:
		return "transport"
	case Protocol:
		return "protocol"
	case Producer:
		return "producer"
	case Shape:
		return "shape"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error wraps an error with its class and the operation that failed.
type Error struct {
	Class Class
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if errno, ok := Errno(e.Err); ok {
		return fmt.Sprintf("%s: %s: %v (errno %d)", e.Class, e.Op, e.Err, int(errno))
	}
	return fmt.Sprintf("%s: %s: %v", e.Class, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New classifies err. A nil err yields nil.
func New(class Class, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Op: op, Err: err}
}

// Classify returns the class of err, or 0 when err carries none.
func Classify(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return 0
}

// IsTransport reports whether err must terminate the owning process.
func IsTransport(err error) bool {
	return err != nil && Classify(err) == Transport
}

// IsUnavailable reports whether err signals that exclusion could not be
// established and output should degrade to direct writes.
func IsUnavailable(err error) bool {
	return err != nil && Classify(err) == Unavailable
}

// Errno extracts the OS error code carried by err, if any.
func Errno(err error) (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}
