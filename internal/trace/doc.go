// Package trace provides the diagnostic event log for outmux.
//
// Producers and the aggregation server report connection lifecycle, dropped
// records and degraded exclusion through a Tracer. When tracing is off every
// call is a no-op.
//
// # Usage
//
// Enable tracing via command-line flags or the environment:
//
//	outmux serve --socket /tmp/out.sock --trace=- --trace-level=info
//	OUTMUX_DEBUG=1 outmux filter /tmp/out.lock < build.log
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only failures
//   - LevelInfo: Process and connection lifecycle
//   - LevelDebug: Everything including per-record and discarded bodies
//
// # Scopes
//
//   - ScopeProcess: CLI and server lifetime
//   - ScopeConnection: One producer connection or lock acquisition
//   - ScopeRecord: One record or parsed body
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeConnection, "conn", 0)
//	defer span.End("")
package trace
