package format

import (
	"strings"
	"testing"

	"outmux/internal/message"
	"outmux/internal/parser"
)

func TestFormatPlain(t *testing.T) {
	f := New(Options{})

	tests := []struct {
		name string
		ev   parser.Event
		want message.Message
	}{
		{"compiling", parser.CompilingFile{Path: "/src/a.swift"}, message.Message{Dest: message.Primary, Text: "Compiling a.swift\n"}},
		{"module", parser.CompilingFile{Path: parser.ModuleLabel}, message.Message{Dest: message.Primary, Text: "Compiling module\n"}},
		{"header", parser.GeneratedHeader{Name: "Foo.h"}, message.Message{Dest: message.Primary, Text: "Generating Foo.h\n"}},
		{"raw", parser.Raw{Text: "error: x"}, message.Message{Dest: message.Diagnostic, Text: "error: x\n"}},
		{"raw multiline", parser.Raw{Text: "a\nb\n"}, message.Message{Dest: message.Diagnostic, Text: "a\nb\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.Format(tt.ev)
			if !ok {
				t.Fatalf("Format returned !ok")
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatArchLabel(t *testing.T) {
	f := New(Options{Arch: "arm64"})
	got, _ := f.Format(parser.CompilingFile{Path: "a.swift"})
	if got.Text != "[arm64] Compiling a.swift\n" {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestFormatColor(t *testing.T) {
	f := New(Options{Color: true})
	got, _ := f.Format(parser.GeneratedHeader{Name: "Foo.h"})
	if !strings.Contains(got.Text, "\x1b[") {
		t.Fatalf("expected ANSI escapes, got %q", got.Text)
	}
	if !strings.HasSuffix(got.Text, "Foo.h\n") {
		t.Fatalf("unexpected text %q", got.Text)
	}
}

func TestFormatAll(t *testing.T) {
	f := New(Options{})
	msgs := f.FormatAll([]parser.Event{parser.Raw{Text: "a"}, nil, parser.GeneratedHeader{Name: "b.h"}})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

func TestFormatNormalizesNames(t *testing.T) {
	f := New(Options{})
	decomposed := "/src/Cafe\u0301.swift"

	got, _ := f.Format(parser.CompilingFile{Path: decomposed})

	if got.Text != "Compiling Caf\u00e9.swift\n" {
		t.Errorf("Format = %q, want composed name", got.Text)
	}
}
