// Package parser turns a compiler output stream of plain lines and
// length-prefixed JSON bodies into semantic events.
//
// The stream looks like:
//
//	warning: something the driver printed directly
//	123
//	{"name":"compile","kind":"began","inputs":["a.swift"]}
//
// where 123 is the byte length of the JSON body including its final newline.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"outmux/internal/fault"
	"outmux/internal/trace"
)

type state uint8

const (
	stateAwaitingDirective state = iota
	stateReadingBody
	statePassthrough
	stateDone
)

// Options configures a Parser.
type Options struct {
	// ExcludedSuffixes filters compile inputs. Nil selects DefaultExcludedSuffixes.
	ExcludedSuffixes []string
	// Tracer receives discarded bodies at debug level. Nil disables tracing.
	Tracer trace.Tracer
}

// session is the per-stream parse state. It is never shared between producers.
type session struct {
	pending int
	body    bytes.Buffer
	failed  bool
}

// Parser reads one producer stream.
type Parser struct {
	r        *bufio.Reader
	excluded []string
	tracer   trace.Tracer
	sess     session
	state    state
	queue    []Event
	err      error
}

// New creates a parser reading from r.
func New(r io.Reader, opts Options) *Parser {
	excluded := opts.ExcludedSuffixes
	if excluded == nil {
		excluded = DefaultExcludedSuffixes
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Parser{
		r:        bufio.NewReader(r),
		excluded: excluded,
		tracer:   tracer,
	}
}

// Failed reports whether a compile unit failed or the stream became
// unparseable.
func (p *Parser) Failed() bool {
	return p.sess.failed
}

// Next returns the next event. It returns io.EOF once the stream is
// exhausted and any other error only when reading the stream fails.
func (p *Parser) Next() (Event, error) {
	for len(p.queue) == 0 {
		if p.state == stateDone {
			if p.err != nil {
				return nil, p.err
			}
			return nil, io.EOF
		}
		p.step()
	}
	ev := p.queue[0]
	p.queue = p.queue[1:]
	return ev, nil
}

// NextBatch returns every event produced by the next raw line or JSON body,
// so callers can write them as one unit. Bodies that yield no events are
// skipped. It returns io.EOF once the stream is exhausted.
func (p *Parser) NextBatch() ([]Event, error) {
	for len(p.queue) == 0 {
		if p.state == stateDone {
			if p.err != nil {
				return nil, p.err
			}
			return nil, io.EOF
		}
		p.step()
	}
	batch := p.queue
	p.queue = nil
	return batch, nil
}

// All iterates over the remaining events. A read failure is yielded once,
// after which iteration stops.
func (p *Parser) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := p.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// readLine returns one line including its terminator. At the end of the
// stream it returns the final unterminated line, if any, with io.EOF.
func (p *Parser) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return line, fault.New(fault.Transport, "read compiler output", err)
	}
	return line, err
}

func (p *Parser) finish(err error) {
	p.state = stateDone
	p.err = err
}

func (p *Parser) step() {
	switch p.state {
	case stateAwaitingDirective:
		p.awaitDirective()
	case stateReadingBody:
		p.readBody()
	case statePassthrough:
		p.passthrough()
	}
}

func (p *Parser) awaitDirective() {
	line, err := p.readLine()
	if line != "" {
		p.handleDirectiveLine(trimEOL(line))
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if p.state == stateReadingBody {
				p.truncatedBody()
				return
			}
			err = nil
		}
		p.finish(err)
	}
}

func (p *Parser) handleDirectiveLine(line string) {
	if line == "" {
		return
	}
	if matched, failure := matchRawPrefix(line); matched {
		if failure {
			p.sess.failed = true
		}
		p.queue = append(p.queue, Raw{Text: line})
		return
	}
	if n, ok := parseDirective(line); ok {
		p.sess.pending = n
		p.sess.body.Reset()
		p.state = stateReadingBody
		return
	}
	// Something other than the driver wrote to this stream; stop
	// interpreting it.
	trace.Point(p.tracer, trace.ScopeRecord, "passthrough", "unexpected line %q", line)
	p.sess.failed = true
	p.state = statePassthrough
	p.queue = append(p.queue, Raw{Text: line})
}

func (p *Parser) readBody() {
	// The length check comes before every read so a body never consumes
	// the next directive.
	for p.sess.body.Len() < p.sess.pending {
		line, err := p.readLine()
		p.sess.body.WriteString(line)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if p.sess.body.Len() < p.sess.pending {
				p.truncatedBody()
				return
			}
			break
		}
		p.finish(err)
		return
	}

	p.decodeBody()
	p.sess.body.Reset()
	p.sess.pending = 0
	if p.state == stateReadingBody {
		p.state = stateAwaitingDirective
	}
}

func (p *Parser) decodeBody() {
	data := bytes.TrimSuffix(p.sess.body.Bytes(), []byte("\n"))
	out, err := DecodeOutput(data)
	if err != nil {
		p.discard(fault.New(fault.Protocol, "decode body", err), data)
		return
	}
	events, failed := out.Events(p.excluded)
	if failed {
		p.sess.failed = true
	}
	p.queue = append(p.queue, events...)
}

func (p *Parser) discard(err error, data []byte) {
	trace.Point(p.tracer, trace.ScopeRecord, "discard", "%v: %s", err, data)
}

func (p *Parser) truncatedBody() {
	err := fault.New(fault.Shape, "read body",
		fmt.Errorf("stream ended after %d of %d bytes", p.sess.body.Len(), p.sess.pending))
	trace.Error(p.tracer, trace.ScopeRecord, "body", err)
	p.sess.failed = true
	p.finish(nil)
}

func (p *Parser) passthrough() {
	line, err := p.readLine()
	if line != "" {
		p.queue = append(p.queue, Raw{Text: trimEOL(line)})
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		p.finish(err)
	}
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
