// Package format maps parser events to the lines written to the terminal.
package format

import (
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/unicode/norm"

	"outmux/internal/message"
	"outmux/internal/parser"
)

// Options configures a Formatter.
type Options struct {
	Color bool
	// Arch is prefixed to status lines when set, e.g. "[arm64] ".
	Arch string
}

// Formatter renders events as messages.
type Formatter struct {
	verb *color.Color
	arch *color.Color
	opts Options
}

// New creates a Formatter.
func New(opts Options) *Formatter {
	verb := color.New(color.FgGreen, color.Bold)
	arch := color.New(color.FgCyan)
	if opts.Color {
		verb.EnableColor()
		arch.EnableColor()
	} else {
		verb.DisableColor()
		arch.DisableColor()
	}
	return &Formatter{verb: verb, arch: arch, opts: opts}
}

// Format returns the message for ev. ok is false for unknown event types.
func (f *Formatter) Format(ev parser.Event) (message.Message, bool) {
	switch ev := ev.(type) {
	case parser.Raw:
		return message.Message{Dest: message.Diagnostic, Text: line(ev.Text)}, true
	case parser.CompilingFile:
		return f.status("Compiling", filepath.Base(ev.Path)), true
	case parser.GeneratedHeader:
		return f.status("Generating", ev.Name), true
	default:
		return message.Message{}, false
	}
}

// FormatAll renders a batch of events, skipping unknown ones.
func (f *Formatter) FormatAll(events []parser.Event) []message.Message {
	msgs := make([]message.Message, 0, len(events))
	for _, ev := range events {
		if msg, ok := f.Format(ev); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func (f *Formatter) status(verb, subject string) message.Message {
	var sb strings.Builder
	if f.opts.Arch != "" {
		sb.WriteString(f.arch.Sprint("[" + f.opts.Arch + "]"))
		sb.WriteString(" ")
	}
	sb.WriteString(f.verb.Sprint(verb))
	sb.WriteString(" ")
	// File names reported by HFS+/APFS may be decomposed.
	sb.WriteString(norm.NFC.String(subject))
	return message.Message{Dest: message.Primary, Text: line(sb.String())}
}

func line(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
