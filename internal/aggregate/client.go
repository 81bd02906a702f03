package aggregate

import (
	"bytes"
	"context"
	"net"
	"time"

	"outmux/internal/exclusion"
	"outmux/internal/fault"
	"outmux/internal/frame"
	"outmux/internal/message"
)

// DialTimeout bounds how long a producer waits for the server before
// falling back to direct output.
const DialTimeout = 2 * time.Second

// Client sends a producer's messages to the aggregation server.
type Client struct {
	conn net.Conn
	buf  bytes.Buffer
}

var _ exclusion.Sink = (*Client)(nil)

// Dial connects to the server listening at path. Failures are classified as
// fault.Unavailable so callers can fall back to exclusion.Direct.
func Dial(ctx context.Context, path string) (*Client, error) {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fault.New(fault.Unavailable, "connect "+path, err)
	}
	return &Client{conn: conn}, nil
}

// Emit sends each message as one record, the whole batch in a single write.
// On failure the error carries an exclusion.PartialError counting the
// records the connection accepted before it broke.
func (c *Client) Emit(msgs ...message.Message) error {
	c.buf.Reset()
	ends := make([]int, 0, len(msgs))
	for _, msg := range msgs {
		if err := frame.Write(&c.buf, frame.FromMessage(msg)); err != nil {
			return fault.New(fault.Transport, "send record", &exclusion.PartialError{Err: err})
		}
		ends = append(ends, c.buf.Len())
	}
	if len(ends) == 0 {
		return nil
	}
	n, err := c.conn.Write(c.buf.Bytes())
	if err != nil {
		delivered := 0
		for delivered < len(ends) && ends[delivered] <= n {
			delivered++
		}
		return fault.New(fault.Transport, "send record", &exclusion.PartialError{Delivered: delivered, Err: err})
	}
	return nil
}

// Close closes the connection, which the server sees as a graceful end of
// stream.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		return fault.New(fault.Transport, "close connection", err)
	}
	return nil
}
