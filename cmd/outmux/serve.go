package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"outmux/internal/aggregate"
	"outmux/internal/frame"
	"outmux/internal/message"
	"outmux/internal/trace"
	"outmux/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve --socket PATH [flags]",
	Short: "Run the aggregation server",
	Long: `Serve listens on a unix socket and writes the records of every connected
filter to stdout and stderr, one whole record at a time. With --expect K it
exits after K producers have connected and finished.`,
	Args: cobra.NoArgs,
	RunE: serveExecution,
}

func init() {
	serveCmd.Flags().String("socket", "", "unix socket path")
	serveCmd.Flags().Int("expect", 0, "exit after this many producers finished (0: until interrupted)")
	serveCmd.Flags().Int("max-conns", 0, "maximum producers served at once (0: unlimited)")
	serveCmd.Flags().Uint32("max-record", frame.DefaultMaxLen, "maximum record length in bytes (0: unlimited)")
	serveCmd.Flags().String("log-file", "", "write both destinations to this file instead of stdout/stderr")
	serveCmd.Flags().String("journal", "", "record every written record to this msgpack journal")
	serveCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	serveCmd.Flags().String("ui", "auto", "live status view (auto|on|off); requires --log-file")
}

type serveOptions struct {
	socket      string
	expect      int
	maxConns    int
	maxRecord   uint32
	logFile     string
	journal     string
	metricsAddr string
	ui          uiMode
}

func readServeOptions(cmd *cobra.Command, st *settings) (serveOptions, error) {
	cfg := st.config.Server
	var (
		opts serveOptions
		err  error
	)
	if opts.socket, err = stringFlag(cmd, "socket", cfg.Socket); err != nil {
		return opts, err
	}
	if opts.socket == "" {
		return opts, fmt.Errorf("missing --socket (or [server].socket)")
	}
	if opts.expect, err = intFlag(cmd, "expect", cfg.Expect); err != nil {
		return opts, err
	}
	if opts.maxConns, err = intFlag(cmd, "max-conns", cfg.MaxConns); err != nil {
		return opts, err
	}
	if opts.maxRecord, err = cmd.Flags().GetUint32("max-record"); err != nil {
		return opts, err
	}
	if !cmd.Flags().Changed("max-record") && cfg.MaxRecord != 0 {
		opts.maxRecord = cfg.MaxRecord
	}
	if opts.logFile, err = stringFlag(cmd, "log-file", cfg.LogFile); err != nil {
		return opts, err
	}
	if opts.journal, err = stringFlag(cmd, "journal", cfg.Journal); err != nil {
		return opts, err
	}
	if opts.metricsAddr, err = stringFlag(cmd, "metrics-addr", cfg.MetricsAddr); err != nil {
		return opts, err
	}
	uiValue, err := stringFlag(cmd, "ui", cfg.UI)
	if err != nil {
		return opts, err
	}
	if opts.ui, err = readUIMode("ui", uiValue); err != nil {
		return opts, err
	}
	if opts.ui == uiModeOn && opts.logFile == "" {
		return opts, fmt.Errorf("--ui=on requires --log-file")
	}
	return opts, nil
}

func serveExecution(cmd *cobra.Command, _ []string) error {
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

	opts, err := readServeOptions(cmd, st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	tracer := trace.FromContext(ctx)

	cfg := aggregate.ServerConfig{
		Path:      opts.socket,
		Expect:    opts.expect,
		MaxConns:  opts.maxConns,
		MaxRecord: opts.maxRecord,
		Streams:   message.Streams{Primary: os.Stdout, Diagnostic: os.Stderr},
	}

	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		cfg.Streams = message.Streams{Primary: f, Diagnostic: f}
	}

	if opts.journal != "" {
		journal, err := aggregate.CreateJournal(opts.journal)
		if err != nil {
			return err
		}
		defer func() {
			if err := journal.Close(); err != nil {
				trace.Error(tracer, trace.ScopeProcess, "journal close", err)
			}
		}()
		cfg.Journal = journal
	}

	if opts.metricsAddr != "" {
		metrics := aggregate.NewMetrics()
		shutdown, err := serveMetrics(ctx, opts.metricsAddr, metrics, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer shutdown()
		cfg.Metrics = metrics
	}

	useUI := opts.logFile != "" && resolveMode(opts.ui, os.Stdout)
	var events chan aggregate.Status
	if useUI {
		events = make(chan aggregate.Status, 256)
		cfg.Status = func(s aggregate.Status) {
			select {
			case events <- s:
			default:
			}
		}
	}

	srv := aggregate.NewServer(cfg)
	if err := srv.Listen(); err != nil {
		return err
	}
	trace.Point(tracer, trace.ScopeProcess, "listen", "socket=%s expect=%d", srv.Addr(), opts.expect)

	if !useUI {
		return srv.Serve(ctx)
	}
	return serveWithUI(ctx, stop, srv, opts.expect, events)
}

// serveWithUI runs the server next to the status view. Quitting the view
// stops the server.
func serveWithUI(ctx context.Context, stop context.CancelFunc, srv *aggregate.Server, expect int, events chan aggregate.Status) error {
	outcome := make(chan error, 1)
	go func() {
		err := srv.Serve(ctx)
		close(events)
		outcome <- err
	}()

	model := ui.NewMonitorModel("outmux "+srv.Addr(), expect, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	stop()
	serveErr := <-outcome
	if uiErr != nil {
		return errors.Join(serveErr, uiErr)
	}
	return serveErr
}

func serveMetrics(ctx context.Context, addr string, metrics *aggregate.Metrics, errOut io.Writer) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			trace.Error(trace.FromContext(ctx), trace.ScopeProcess, "metrics", err)
			fmt.Fprintf(errOut, "outmux: metrics server: %v\n", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx) //nolint:errcheck
	}, nil
}
