package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"outmux/internal/aggregate"
	"outmux/internal/exclusion"
	"outmux/internal/frame"
	"outmux/internal/message"
)

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in      string
		want    uiMode
		wantErr bool
	}{
		{"", uiModeAuto, false},
		{"auto", uiModeAuto, false},
		{" ON ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := readUIMode("ui", tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("readUIMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("readUIMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("arch", "", "")
	cmd.Flags().Int("expect", 0, "")
	return cmd
}

func TestFlagPrecedence(t *testing.T) {
	cmd := newFlagCommand()
	got, err := stringFlag(cmd, "arch", "arm64")
	if err != nil || got != "arm64" {
		t.Fatalf("config fallback: got %q, %v", got, err)
	}
	n, err := intFlag(cmd, "expect", 3)
	if err != nil || n != 3 {
		t.Fatalf("config fallback: got %d, %v", n, err)
	}

	if err := cmd.Flags().Parse([]string{"--arch=x86_64", "--expect=5"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, err = stringFlag(cmd, "arch", "arm64")
	if err != nil || got != "x86_64" {
		t.Fatalf("flag should win: got %q, %v", got, err)
	}
	n, err = intFlag(cmd, "expect", 3)
	if err != nil || n != 5 {
		t.Fatalf("flag should win: got %d, %v", n, err)
	}
}

func TestIntFlagRejectsNegative(t *testing.T) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse([]string{"--expect=-2"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := intFlag(cmd, "expect", 0); err == nil {
		t.Fatalf("expected error for negative value")
	}
}

func TestOpenSinkSelection(t *testing.T) {
	streams := message.Streams{Primary: &bytes.Buffer{}, Diagnostic: &bytes.Buffer{}}
	ctx := context.Background()

	sink, err := openSink(ctx, "-", streams)
	if err != nil {
		t.Fatalf("openSink(-): %v", err)
	}
	if _, ok := sink.(*exclusion.Direct); !ok {
		t.Errorf("openSink(-) = %T, want *exclusion.Direct", sink)
	}

	lockPath := filepath.Join(t.TempDir(), "out.lock")
	sink, err = openSink(ctx, lockPath, streams)
	if err != nil {
		t.Fatalf("openSink(lock): %v", err)
	}
	if _, ok := sink.(*exclusion.LockSink); !ok {
		t.Errorf("openSink(lock) = %T, want *exclusion.LockSink", sink)
	}
}

func TestOpenSinkSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "om")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "s.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	streams := message.Streams{Primary: &bytes.Buffer{}, Diagnostic: &bytes.Buffer{}}

	sink, err := openSink(context.Background(), path, streams)
	if err != nil {
		t.Fatalf("openSink(socket): %v", err)
	}
	if _, ok := sink.(*aggregate.Client); !ok {
		t.Errorf("openSink(socket) = %T, want *aggregate.Client", sink)
	}
	_ = sink.Close()

	// A socket file nobody listens on degrades to direct output.
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	if err := ln.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	sink, err = openSink(context.Background(), path, streams)
	if err != nil {
		t.Fatalf("openSink(stale socket): %v", err)
	}
	if _, ok := sink.(*exclusion.Direct); !ok {
		t.Errorf("openSink(stale socket) = %T, want *exclusion.Direct", sink)
	}
}

func TestServeOptionsDefaultRecordLimit(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().AddFlagSet(serveCmd.Flags())

	var st settings
	st.config.Server.Socket = "/tmp/outmux-test.sock"
	opts, err := readServeOptions(cmd, &st)
	if err != nil {
		t.Fatalf("readServeOptions: %v", err)
	}
	if opts.maxRecord != frame.DefaultMaxLen {
		t.Errorf("maxRecord = %d, want %d", opts.maxRecord, frame.DefaultMaxLen)
	}

	st.config.Server.MaxRecord = 1024
	opts, err = readServeOptions(cmd, &st)
	if err != nil {
		t.Fatalf("readServeOptions: %v", err)
	}
	if opts.maxRecord != 1024 {
		t.Errorf("config max_record ignored: %d", opts.maxRecord)
	}
}
