package aggregate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"outmux/internal/frame"
	"outmux/internal/message"
)

// journalSchemaVersion is bumped when JournalEntry changes shape.
const journalSchemaVersion uint16 = 1

// JournalEntry is one record as written by the serial writer.
type JournalEntry struct {
	Schema  uint16              `msgpack:"schema"`
	Seq     uint64              `msgpack:"seq"`
	Conn    uint64              `msgpack:"conn"`
	Dest    message.Destination `msgpack:"dest"`
	Payload []byte              `msgpack:"payload"`
	Time    time.Time           `msgpack:"time"`
}

// Journal appends written records to a msgpack file in output order.
// It is only used from the serial writer.
type Journal struct {
	f   *os.File
	bw  *bufio.Writer
	enc *msgpack.Encoder
	seq uint64
}

// CreateJournal truncates or creates the journal at path.
func CreateJournal(path string) (*Journal, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	bw := bufio.NewWriter(f)
	return &Journal{f: f, bw: bw, enc: msgpack.NewEncoder(bw)}, nil
}

// Append stores rec, received on connection conn.
func (j *Journal) Append(conn uint64, rec frame.Record) error {
	j.seq++
	return j.enc.Encode(&JournalEntry{
		Schema:  journalSchemaVersion,
		Seq:     j.seq,
		Conn:    conn,
		Dest:    rec.Dest,
		Payload: rec.Payload,
		Time:    time.Now(),
	})
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	flushErr := j.bw.Flush()
	closeErr := j.f.Close()
	return errors.Join(flushErr, closeErr)
}

// ReadJournal decodes entries from r in order until the end of the stream.
func ReadJournal(r io.Reader, fn func(JournalEntry) error) error {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	for {
		var entry JournalEntry
		if err := dec.Decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode journal entry: %w", err)
		}
		if entry.Schema != journalSchemaVersion {
			return fmt.Errorf("journal schema %d not supported (want %d)", entry.Schema, journalSchemaVersion)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

// Replay writes every journal entry to its destination stream.
func Replay(r io.Reader, streams message.Streams) error {
	return ReadJournal(r, func(entry JournalEntry) error {
		_, err := streams.For(entry.Dest).Write(entry.Payload)
		return err
	})
}
