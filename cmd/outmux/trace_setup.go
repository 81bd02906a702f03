package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"outmux/internal/trace"
)

// setupTracing inspects trace-related flags and attaches a tracer to the
// command context. OUTMUX_DEBUG forces debug-level tracing, to stderr unless
// --trace names a file. It returns a cleanup function.
func setupTracing(cmd *cobra.Command, settings *settings) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	if settings != nil {
		cfg := settings.config.Trace
		if !root.PersistentFlags().Changed("trace") && cfg.Output != "" {
			traceOutput = cfg.Output
		}
		if !root.PersistentFlags().Changed("trace-level") && cfg.Level != "" {
			levelStr = cfg.Level
		}
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if trace.DebugRequested() {
		level = trace.LevelDebug
	}
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelInfo
	}

	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		OutputPath: traceOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
