package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"outmux/internal/message"
)

func TestFramingMultipleRecords(t *testing.T) {
	var buf bytes.Buffer
	rec1 := Record{Dest: message.Primary, Payload: []byte("Compiling a.swift\n")}
	rec2 := Record{Dest: message.Diagnostic, Payload: []byte("error: boom\n")}

	if err := Write(&buf, rec1); err != nil {
		t.Fatalf("write record 1: %v", err)
	}
	if err := Write(&buf, rec2); err != nil {
		t.Fatalf("write record 2: %v", err)
	}

	reader := NewReader(bytes.NewReader(buf.Bytes()))
	got1, err := reader.Read()
	if err != nil {
		t.Fatalf("read record 1: %v", err)
	}
	got2, err := reader.Read()
	if err != nil {
		t.Fatalf("read record 2: %v", err)
	}
	if _, err := reader.Read(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after last record, got %v", err)
	}

	if got1.Dest != rec1.Dest || string(got1.Payload) != string(rec1.Payload) {
		t.Fatalf("unexpected record 1: %+v", got1)
	}
	if got2.Dest != rec2.Dest || string(got2.Payload) != string(rec2.Payload) {
		t.Fatalf("unexpected record 2: %+v", got2)
	}
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode(Record{Dest: message.Diagnostic, Payload: []byte("hi")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0, 0, 0, 3, byte(message.Diagnostic), 'h', 'i'}
	if !bytes.Equal(data, want) {
		t.Fatalf("encoded %v, want %v", data, want)
	}
}

func TestRoundTripPayloadIdentity(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		[]byte("multi\nline\noutput\n"),
		bytes.Repeat([]byte("é"), 70000),
	}
	for _, p := range payloads {
		data, err := Encode(Record{Dest: message.Primary, Payload: p})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		// One byte per read forces the partial-read loop.
		got, err := Read(iotest.OneByteReader(bytes.NewReader(data)))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got.Payload, p) {
			t.Fatalf("payload mismatch for %d bytes", len(p))
		}
	}
}

func TestTruncatedRecord(t *testing.T) {
	data, err := Encode(Record{Dest: message.Primary, Payload: []byte("hello")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, cut := range []int{2, 4, 6} {
		_, err := Read(bytes.NewReader(data[:cut]))
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("cut at %d: expected ErrTruncated, got %v", cut, err)
		}
		if !IsFraming(err) {
			t.Errorf("cut at %d: expected framing error", cut)
		}
	}
}

func TestEmptyStreamIsCleanClose(t *testing.T) {
	if _, err := Read(bytes.NewReader(nil)); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestZeroLengthAndBadTag(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte{0, 0, 0, 0})); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := Read(bytes.NewReader([]byte{0, 0, 0, 1, 9})); !errors.Is(err, ErrBadDestination) {
		t.Fatalf("expected ErrBadDestination, got %v", err)
	}
	if _, err := Encode(Record{Dest: 0}); !errors.Is(err, ErrBadDestination) {
		t.Fatalf("expected encode to reject destination 0, got %v", err)
	}
}

func TestMaxLen(t *testing.T) {
	data, err := Encode(Record{Dest: message.Primary, Payload: []byte("0123456789")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r := NewReader(bytes.NewReader(data))
	r.MaxLen = 4
	if _, err := r.Read(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestDefaultMaxLenRejectsHugeHeader(t *testing.T) {
	// A 4 GiB length field with only a tag behind it.
	src := bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 1})
	r := NewReader(src)
	r.MaxLen = DefaultMaxLen
	if _, err := r.Read(); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	data, err := Encode(Record{Dest: message.Diagnostic, Payload: bytes.Repeat([]byte("e"), 64<<10)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r = NewReader(bytes.NewReader(data))
	r.MaxLen = DefaultMaxLen
	if _, err := r.Read(); err != nil {
		t.Fatalf("record under the default limit rejected: %v", err)
	}
}
