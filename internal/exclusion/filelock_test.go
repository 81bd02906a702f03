//go:build unix

package exclusion

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outmux/internal/message"
	"outmux/internal/trace"
)

func TestFileLockMutualExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.lock")

	var inside, overlaps, runs atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := &FileLock{Path: path}
			for j := 0; j < 10; j++ {
				err := lock.WithExclusiveAccess(func() error {
					if inside.Add(1) != 1 {
						overlaps.Add(1)
					}
					time.Sleep(100 * time.Microsecond)
					inside.Add(-1)
					runs.Add(1)
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(80), runs.Load())
	assert.Zero(t, overlaps.Load(), "critical sections overlapped")
}

func TestFileLockDeletedMidRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.lock")
	lock := &FileLock{Path: path}

	require.NoError(t, lock.WithExclusiveAccess(func() error { return nil }))
	require.NoError(t, os.Remove(path))

	ran := false
	require.NoError(t, lock.WithExclusiveAccess(func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestFileLockUnavailableDegrades(t *testing.T) {
	var traced bytes.Buffer
	lock := &FileLock{
		Path:   filepath.Join(t.TempDir(), "missing", "dir", "out.lock"),
		Tracer: trace.NewStreamTracer(&traced, trace.LevelError, trace.FormatText),
	}

	ran := false
	err := lock.WithExclusiveAccess(func() error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Contains(t, traced.String(), "unavailable")
}

func TestFileLockReleasedOnActionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.lock")
	lock := &FileLock{Path: path}
	boom := errors.New("boom")

	require.ErrorIs(t, lock.WithExclusiveAccess(func() error { return boom }), boom)

	done := make(chan struct{})
	go func() {
		_ = lock.WithExclusiveAccess(func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not released after a failing action")
	}
}

func TestLockSinkRoutesDestinations(t *testing.T) {
	var stdout, stderr bytes.Buffer
	sink := NewLockSink(filepath.Join(t.TempDir(), "out.lock"),
		message.Streams{Primary: &stdout, Diagnostic: &stderr}, nil)

	err := sink.Emit(
		message.Message{Dest: message.Primary, Text: "Compiling a.swift\n"},
		message.Message{Dest: message.Diagnostic, Text: "error: x\n"},
	)

	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.Equal(t, "Compiling a.swift\n", stdout.String())
	assert.Equal(t, "error: x\n", stderr.String())
}
