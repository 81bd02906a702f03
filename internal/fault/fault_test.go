package fault

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestClassString(t *testing.T) {
	tests := []struct {
		class    Class
		expected string
	}{
		{Transport, "transport"},
		{Protocol, "protocol"},
		{Producer, "producer"},
		{Shape, "shape"},
		{Unavailable, "unavailable"},
		{Class(99), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if got := test.class.String(); got != test.expected {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

func TestNewNil(t *testing.T) {
	if err := New(Transport, "flock", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestClassifyThroughWrapping(t *testing.T) {
	base := New(Transport, "accept", errors.New("boom"))
	wrapped := fmt.Errorf("serve: %w", base)

	if !IsTransport(wrapped) {
		t.Fatalf("expected transport error, got class %v", Classify(wrapped))
	}
	if IsUnavailable(wrapped) {
		t.Fatalf("transport errors must not degrade")
	}
	if Classify(errors.New("plain")) != 0 {
		t.Fatalf("plain errors carry no class")
	}
}

func TestOnlyTransportIsFatal(t *testing.T) {
	for _, class := range []Class{Protocol, Producer, Shape, Unavailable} {
		if IsTransport(New(class, "op", errors.New("x"))) {
			t.Errorf("%s must not be transport", class)
		}
	}
}

func TestErrnoReported(t *testing.T) {
	pathErr := &os.PathError{Op: "open", Path: "/nope", Err: syscall.EACCES}
	err := New(Unavailable, "open lock", pathErr)

	errno, ok := Errno(err)
	if !ok || errno != syscall.EACCES {
		t.Fatalf("expected EACCES, got %v (ok=%v)", errno, ok)
	}
	if !strings.Contains(err.Error(), "errno") {
		t.Fatalf("expected errno in message, got %q", err.Error())
	}
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable class")
	}
}
