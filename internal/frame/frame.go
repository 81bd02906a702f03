// Package frame implements the length-prefixed record format spoken between
// aggregation clients and the server.
//
// A record on the wire is
//
//	[4-byte big-endian length L][1-byte destination tag][L-1 bytes of text]
//
// L counts the tag and the text, so it is never zero.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"

	"outmux/internal/message"
)

const headerLen = 4

// DefaultMaxLen is the record length limit `outmux serve` applies unless
// configured otherwise. A compiler diagnostic is far smaller.
const DefaultMaxLen uint32 = 16 << 20

var (
	// ErrTruncated reports a stream that ended inside a record.
	ErrTruncated = errors.New("frame: truncated record")
	// ErrEmpty reports a zero length field.
	ErrEmpty = errors.New("frame: zero-length record")
	// ErrTooLarge reports a record longer than Reader.MaxLen.
	ErrTooLarge = errors.New("frame: record exceeds limit")
	// ErrBadDestination reports an unknown destination tag.
	ErrBadDestination = errors.New("frame: unknown destination")
)

// Record is one framed unit: the atomic unit of output ordering.
type Record struct {
	Dest    message.Destination
	Payload []byte
}

// FromMessage converts a formatted message into a record.
func FromMessage(msg message.Message) Record {
	return Record{Dest: msg.Dest, Payload: []byte(msg.Text)}
}

// Message converts the record back into a message.
func (r Record) Message() message.Message {
	return message.Message{Dest: r.Dest, Text: string(r.Payload)}
}

// Encode returns the wire form of rec.
func Encode(rec Record) ([]byte, error) {
	if !rec.Dest.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrBadDestination, rec.Dest)
	}
	n, err := safecast.Conv[uint32](len(rec.Payload) + 1)
	if err != nil {
		return nil, fmt.Errorf("frame: payload of %d bytes: %w", len(rec.Payload), err)
	}
	buf := make([]byte, headerLen+int(n))
	binary.BigEndian.PutUint32(buf[:headerLen], n)
	buf[headerLen] = byte(rec.Dest)
	copy(buf[headerLen+1:], rec.Payload)
	return buf, nil
}

// Write encodes rec and writes it to w in a single call.
func Write(w io.Writer, rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Reader decodes records from a byte stream.
type Reader struct {
	r *bufio.Reader
	// MaxLen bounds the length field when positive.
	MaxLen uint32
}

// NewReader wraps r. An existing *bufio.Reader is reused.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// Read blocks until a full record is available. It returns io.EOF when the
// stream closes cleanly between records and ErrTruncated when it closes
// inside one.
func (fr *Reader) Read() (Record, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(fr.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, ErrTruncated
		}
		return Record{}, err
	}

	n := binary.BigEndian.Uint32(header[:])
	if n == 0 {
		return Record{}, ErrEmpty
	}
	if fr.MaxLen > 0 && n > fr.MaxLen {
		return Record{}, fmt.Errorf("%w: %d > %d", ErrTooLarge, n, fr.MaxLen)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, ErrTruncated
		}
		return Record{}, err
	}

	dest, err := message.ParseDestination(body[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrBadDestination, err)
	}
	return Record{Dest: dest, Payload: body[1:]}, nil
}

// Read decodes a single record from r. Use a Reader for streams carrying
// more than one record.
func Read(r io.Reader) (Record, error) {
	return NewReader(r).Read()
}

// IsFraming reports whether err is a malformed-stream error, as opposed to
// a clean close or an I/O failure.
func IsFraming(err error) bool {
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrEmpty) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrBadDestination)
}
