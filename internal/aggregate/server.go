// Package aggregate implements the output relay: producers connect over a
// unix socket and send framed records; the server writes every record whole
// to one output stream so concurrent producers never interleave.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"outmux/internal/fault"
	"outmux/internal/frame"
	"outmux/internal/message"
	"outmux/internal/trace"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Path is the unix socket path. An existing file at Path is replaced.
	Path string
	// Expect, when positive, makes the server accept exactly that many
	// connections and exit once they have all closed. Zero accepts until
	// the context is cancelled.
	Expect int
	// MaxConns bounds concurrently served connections. Zero is unlimited.
	MaxConns int
	// MaxRecord bounds a record's length field. Zero is unlimited.
	MaxRecord uint32
	// Backlog is the number of records queued for the writer.
	Backlog int
	Streams message.Streams
	Journal *Journal
	Metrics *Metrics
	Status  StatusFunc
}

// Connection is one accepted producer, owned by its worker.
type Connection struct {
	conn    net.Conn
	ordinal uint64
}

// Server accepts producer connections and serializes their records.
type Server struct {
	cfg ServerConfig
	ln  net.Listener
}

// NewServer creates a server. Nil streams default to os.Stdout/os.Stderr.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Streams.Primary == nil {
		cfg.Streams.Primary = os.Stdout
	}
	if cfg.Streams.Diagnostic == nil {
		cfg.Streams.Diagnostic = os.Stderr
	}
	return &Server{cfg: cfg}
}

// Listen binds the socket. Serve calls it when it has not been called.
func (s *Server) Listen() error {
	if s.ln != nil {
		return nil
	}
	if err := os.Remove(s.cfg.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fault.New(fault.Transport, "remove stale socket "+s.cfg.Path, err)
	}
	ln, err := net.Listen("unix", s.cfg.Path)
	if err != nil {
		return fault.New(fault.Transport, "listen "+s.cfg.Path, err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound socket path.
func (s *Server) Addr() string {
	return s.cfg.Path
}

// Serve accepts connections until the expected count is reached or ctx is
// cancelled, then waits for every worker and the writer to finish.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeProcess, "serve", 0).WithExtra("path", s.cfg.Path)

	w := newSerialWriter(s.cfg.Streams, s.cfg.Journal, s.cfg.Metrics, s.cfg.Status, s.cfg.Backlog)
	go w.run()

	stopAccept := context.AfterFunc(ctx, func() {
		_ = s.ln.Close() //nolint:errcheck
	})
	defer stopAccept()

	var g errgroup.Group
	if s.cfg.MaxConns > 0 {
		g.SetLimit(s.cfg.MaxConns)
	}

	var acceptErr error
	var accepted uint64
	for s.cfg.Expect <= 0 || accepted < uint64(s.cfg.Expect) {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				acceptErr = fault.New(fault.Transport, "accept", err)
			}
			break
		}
		accepted++
		c := &Connection{conn: conn, ordinal: accepted}
		g.Go(func() error {
			s.serveConn(ctx, c, w, span.ID())
			return nil
		})
	}
	// Fixed mode stops accepting once the expected producers arrived.
	_ = s.ln.Close() //nolint:errcheck

	_ = g.Wait() //nolint:errcheck // workers never fail the group
	writeErr := w.close()

	err := errors.Join(acceptErr, writeErr)
	if err != nil {
		trace.Error(tracer, trace.ScopeProcess, "serve", err)
	}
	span.WithExtra("connections", strconv.FormatUint(accepted, 10)).End("")
	return err
}

// serveConn reads records until the peer closes. Any error ends only this
// connection.
func (s *Server) serveConn(ctx context.Context, c *Connection, w *serialWriter, parent uint64) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeConnection, "conn", parent)
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.Close() //nolint:errcheck
	})
	defer stop()
	defer c.conn.Close()

	s.cfg.Metrics.connOpened()
	defer s.cfg.Metrics.connClosed()
	s.notify(Status{Kind: StatusConnOpened, Conn: c.ordinal})

	r := frame.NewReader(c.conn)
	r.MaxLen = s.cfg.MaxRecord

	var records int
	var connErr error
	for {
		rec, err := r.Read()
		if err != nil {
			connErr = s.classifyReadErr(ctx, err)
			break
		}
		records++
		w.submit(entry{conn: c.ordinal, rec: rec})
	}

	if connErr != nil {
		trace.Error(tracer, trace.ScopeConnection, fmt.Sprintf("conn#%d", c.ordinal), connErr)
	}
	w.submit(entry{conn: c.ordinal, end: true, err: connErr})
	span.WithExtra("records", strconv.Itoa(records)).End("")
}

func (s *Server) classifyReadErr(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case frame.IsFraming(err):
		s.cfg.Metrics.framingError()
		return fault.New(fault.Protocol, "read record", err)
	case ctx.Err() != nil:
		return nil
	default:
		s.cfg.Metrics.connError()
		return fault.New(fault.Transport, "read record", err)
	}
}

func (s *Server) notify(st Status) {
	if s.cfg.Status != nil {
		s.cfg.Status(st)
	}
}
