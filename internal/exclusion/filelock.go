package exclusion

import (
	"os"

	"outmux/internal/fault"
	"outmux/internal/message"
	"outmux/internal/trace"
)

// FileLock serializes actions across processes on the same host with an
// advisory whole-file lock.
type FileLock struct {
	Path   string
	Tracer trace.Tracer
}

// WithExclusiveAccess runs fn while holding the lock. When the lock file
// cannot be opened, fn runs without exclusion. A failure to lock an opened
// file is a transport error and fn is not run.
func (l *FileLock) WithExclusiveAccess(fn func() error) error {
	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		trace.Error(l.tracer(), trace.ScopeConnection, "lock",
			fault.New(fault.Unavailable, "open lock "+l.Path, err))
		return fn()
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fault.New(fault.Transport, "lock "+l.Path, err)
	}
	defer func() {
		// Closing the descriptor releases the lock even if this fails.
		_ = unlockFile(f) //nolint:errcheck
	}()

	return fn()
}

func (l *FileLock) tracer() trace.Tracer {
	if l.Tracer == nil {
		return trace.Nop
	}
	return l.Tracer
}

// LockSink writes each batch of messages under one lock acquisition.
type LockSink struct {
	Lock *FileLock
	Out  *Direct
}

// NewLockSink returns a sink serialized by the lock file at path.
func NewLockSink(path string, streams message.Streams, tracer trace.Tracer) *LockSink {
	return &LockSink{
		Lock: &FileLock{Path: path, Tracer: tracer},
		Out:  NewDirect(streams),
	}
}

// Emit implements Sink.
func (s *LockSink) Emit(msgs ...message.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.Lock.WithExclusiveAccess(func() error {
		return s.Out.Emit(msgs...)
	})
}

// Close implements Sink.
func (s *LockSink) Close() error {
	return s.Out.Close()
}
