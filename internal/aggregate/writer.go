package aggregate

import (
	"outmux/internal/fault"
	"outmux/internal/frame"
	"outmux/internal/message"
)

type entry struct {
	conn uint64
	rec  frame.Record
	// end marks the connection's last entry; err is why it ended.
	end bool
	err error
}

// serialWriter performs every physical write to the output streams. Records
// are written whole, one at a time, in the order they reach the channel.
type serialWriter struct {
	in      chan entry
	done    chan struct{}
	streams message.Streams
	journal *Journal
	metrics *Metrics
	status  StatusFunc
	err     error
}

func newSerialWriter(streams message.Streams, journal *Journal, metrics *Metrics, status StatusFunc, backlog int) *serialWriter {
	if backlog <= 0 {
		backlog = 64
	}
	return &serialWriter{
		in:      make(chan entry, backlog),
		done:    make(chan struct{}),
		streams: streams,
		journal: journal,
		metrics: metrics,
		status:  status,
	}
}

func (w *serialWriter) run() {
	defer close(w.done)
	for e := range w.in {
		if e.end {
			// Sent after every record of the connection has been written.
			w.notify(Status{Kind: StatusConnClosed, Conn: e.conn, Err: e.err})
			continue
		}
		if w.err != nil {
			// Keep draining so workers never block on a dead writer.
			continue
		}
		w.write(e)
	}
}

func (w *serialWriter) write(e entry) {
	rec := e.rec
	if _, err := w.streams.For(rec.Dest).Write(rec.Payload); err != nil {
		w.err = fault.New(fault.Transport, "write "+rec.Dest.String(), err)
		return
	}
	w.metrics.recordWritten(rec.Dest, len(rec.Payload))
	if w.journal != nil {
		if err := w.journal.Append(e.conn, rec); err != nil {
			w.err = fault.New(fault.Transport, "append journal", err)
			return
		}
	}
	w.notify(Status{Kind: StatusRecord, Conn: e.conn, Dest: rec.Dest, Line: firstLine(rec.Payload)})
}

func (w *serialWriter) notify(st Status) {
	if w.status != nil {
		w.status(st)
	}
}

func (w *serialWriter) submit(e entry) {
	w.in <- e
}

// close stops accepting records and waits for the backlog to drain.
func (w *serialWriter) close() error {
	close(w.in)
	<-w.done
	return w.err
}
