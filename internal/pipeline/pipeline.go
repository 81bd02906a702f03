// Package pipeline runs one producer stream through the parser, the
// formatter and an exclusion sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"outmux/internal/exclusion"
	"outmux/internal/fault"
	"outmux/internal/format"
	"outmux/internal/parser"
	"outmux/internal/trace"
)

// Request configures a run.
type Request struct {
	Input     io.Reader
	Sink      exclusion.Sink
	Formatter *format.Formatter
	// Fallback receives output once Sink fails with a transport error,
	// e.g. when the aggregation server goes away mid-build. Only the
	// messages of the failed batch that Sink did not deliver are re-sent.
	// Nil makes such a failure fatal.
	Fallback         exclusion.Sink
	ExcludedSuffixes []string
}

// ErrCompileFailed is the cause carried by Result.Failure.
var ErrCompileFailed = errors.New("compile unit failed")

// Result summarizes a run.
type Result struct {
	// Failed is set when a compile unit failed or the stream became
	// unparseable.
	Failed   bool
	Events   int
	Degraded bool
}

// Failure returns a fault.Producer error when the run failed, nil otherwise.
func (r Result) Failure() error {
	if !r.Failed {
		return nil
	}
	return fault.New(fault.Producer, "compile", ErrCompileFailed)
}

// Run parses req.Input to the end. The returned error is non-nil only for
// transport failures: reading the input or writing the output.
func Run(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil || req.Input == nil || req.Sink == nil {
		return result, fmt.Errorf("pipeline: incomplete request")
	}
	tracer := trace.FromContext(ctx)
	f := req.Formatter
	if f == nil {
		f = format.New(format.Options{})
	}

	span := trace.Begin(tracer, trace.ScopeProcess, "filter", 0)
	p := parser.New(req.Input, parser.Options{
		ExcludedSuffixes: req.ExcludedSuffixes,
		Tracer:           tracer,
	})
	sink := req.Sink

	var runErr error
	for {
		batch, err := p.NextBatch()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = err
			break
		}
		result.Events += len(batch)
		msgs := f.FormatAll(batch)

		err = sink.Emit(msgs...)
		if err != nil && fault.IsTransport(err) && req.Fallback != nil && !result.Degraded {
			trace.Error(tracer, trace.ScopeConnection, "emit", err)
			result.Degraded = true
			sink = req.Fallback
			err = sink.Emit(msgs[exclusion.Delivered(err):]...)
		}
		if err != nil {
			runErr = err
			break
		}
	}

	result.Failed = p.Failed()
	span.WithExtra("events", fmt.Sprint(result.Events)).End(fmt.Sprintf("failed=%v", result.Failed))
	return result, runErr
}
