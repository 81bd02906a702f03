package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"outmux/internal/aggregate"
	"outmux/internal/exclusion"
	"outmux/internal/fault"
	"outmux/internal/format"
	"outmux/internal/message"
	"outmux/internal/pipeline"
	"outmux/internal/trace"
)

var filterCmd = &cobra.Command{
	Use:   "filter [flags] <lock-or-socket|->",
	Short: "Format compiler output read from stdin",
	Long: `Filter reads the compiler's framed output on stdin and prints status lines
and diagnostics. When the target is an aggregation server socket the output
is sent there; any other path is used as a lock file held while printing;
"-" prints directly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: filterExecution,
}

func init() {
	filterCmd.Flags().String("arch", "", "architecture label prefixed to status lines")
	filterCmd.Flags().StringSlice("exclude", nil, "input suffixes that never produce a status line (default .pch,.gch,.swiftinterface)")
	filterCmd.Flags().Bool("no-fallback", false, "fail instead of printing directly when the server goes away")
}

func filterExecution(cmd *cobra.Command, args []string) error {
	st, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, st)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cfg := st.config.Filter
	colorValue, err := stringFlag(cmd, "color", cfg.Color)
	if err != nil {
		return err
	}
	colorMode, err := readUIMode("color", colorValue)
	if err != nil {
		return err
	}
	arch, err := stringFlag(cmd, "arch", cfg.Arch)
	if err != nil {
		return err
	}
	excluded, err := cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("exclude") {
		excluded = cfg.ExcludedSuffixes
	}
	noFallback, err := cmd.Flags().GetBool("no-fallback")
	if err != nil {
		return err
	}

	target := cfg.Target
	if len(args) == 1 {
		target = args[0]
	}
	if target == "" {
		return fmt.Errorf("missing lock file or socket path (pass one or set [filter].target)")
	}

	ctx := cmd.Context()
	streams := message.Streams{Primary: os.Stdout, Diagnostic: os.Stderr}
	sink, err := openSink(ctx, target, streams)
	if err != nil {
		return err
	}
	defer sink.Close()

	req := &pipeline.Request{
		Input: cmd.InOrStdin(),
		Sink:  sink,
		Formatter: format.New(format.Options{
			Color: resolveMode(colorMode, os.Stdout),
			Arch:  arch,
		}),
		ExcludedSuffixes: excluded,
	}
	if _, isClient := sink.(*aggregate.Client); isClient && !noFallback {
		req.Fallback = exclusion.NewDirect(streams)
	}

	res, err := pipeline.Run(ctx, req)
	if err != nil {
		return err
	}
	if res.Degraded {
		trace.Point(trace.FromContext(ctx), trace.ScopeProcess, "fallback", "aggregation server lost; printed directly")
	}
	if failure := res.Failure(); failure != nil {
		trace.Error(trace.FromContext(ctx), trace.ScopeProcess, "filter", failure)
		return exitCodeError{code: 1}
	}
	return nil
}

// openSink picks the exclusion backend for target. A socket that cannot be
// reached degrades to direct output.
func openSink(ctx context.Context, target string, streams message.Streams) (exclusion.Sink, error) {
	if target == "-" {
		return exclusion.NewDirect(streams), nil
	}
	tracer := trace.FromContext(ctx)
	info, err := os.Stat(target)
	if err == nil && info.Mode()&os.ModeSocket != 0 {
		client, err := aggregate.Dial(ctx, target)
		if err == nil {
			return client, nil
		}
		if !fault.IsUnavailable(err) {
			return nil, err
		}
		trace.Error(tracer, trace.ScopeProcess, "dial", err)
		return exclusion.NewDirect(streams), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		trace.Error(tracer, trace.ScopeProcess, "stat target", err)
	}
	return exclusion.NewLockSink(target, streams, tracer), nil
}
