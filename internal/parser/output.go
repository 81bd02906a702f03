package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ModuleLabel is reported for a whole-module build whose input list is empty.
const ModuleLabel = "module"

// HeaderType marks a generated public header among merge-module outputs.
const HeaderType = "objc-header"

// DefaultExcludedSuffixes lists inputs that never get a status line.
var DefaultExcludedSuffixes = []string{".pch", ".gch", ".swiftinterface"}

// ErrUnknownOutput reports a body whose name is not a known output kind.
var ErrUnknownOutput = errors.New("unknown output kind")

// Output is one decoded JSON body.
type Output interface {
	// Events returns the events for this body and whether the producer
	// reported a failure.
	Events(excluded []string) ([]Event, bool)
}

type outputHeader struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type outputStatus struct {
	Kind       string `json:"kind"`
	ExitStatus *int   `json:"exit-status"`
	Output     string `json:"output"`
}

// failed reports a finished record with nonzero status or a signal.
func (s outputStatus) failed() bool {
	switch s.Kind {
	case "signalled":
		return true
	case "finished":
		return s.ExitStatus != nil && *s.ExitStatus != 0
	default:
		return false
	}
}

func (s outputStatus) failureEvents() []Event {
	if s.Output == "" {
		return nil
	}
	return []Event{Raw{Text: strings.TrimSuffix(s.Output, "\n")}}
}

// CompileOutput is a "compile" or "emit-module" body.
type CompileOutput struct {
	outputStatus
	// Inputs is nil when the field is absent and empty when it is [].
	Inputs *[]string `json:"inputs"`
}

// Events implements Output.
func (o *CompileOutput) Events(excluded []string) ([]Event, bool) {
	if o.failed() {
		return o.failureEvents(), true
	}
	if o.Inputs == nil {
		return nil, false
	}
	inputs := *o.Inputs
	if len(inputs) == 0 {
		// The driver lists no inputs for whole-module builds.
		return []Event{CompilingFile{Path: ModuleLabel}}, false
	}
	events := make([]Event, 0, len(inputs))
	for _, path := range inputs {
		if hasAnySuffix(path, excluded) {
			continue
		}
		events = append(events, CompilingFile{Path: path})
	}
	return events, false
}

// Artifact is one declared output of a merge-module body.
type Artifact struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// MergeModuleOutput is a "merge-module" body.
type MergeModuleOutput struct {
	outputStatus
	Outputs []Artifact `json:"outputs"`
}

// Events implements Output.
func (o *MergeModuleOutput) Events(_ []string) ([]Event, bool) {
	if o.failed() {
		return o.failureEvents(), true
	}
	var events []Event
	for _, out := range o.Outputs {
		if out.Type != HeaderType {
			continue
		}
		events = append(events, GeneratedHeader{Name: filepath.Base(out.Path)})
	}
	return events, false
}

// DecodeOutput reads the discriminator of a body and decodes it into the
// matching Output.
func DecodeOutput(data []byte) (Output, error) {
	var hdr outputHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("decode output header: %w", err)
	}

	var out Output
	switch hdr.Name {
	case "compile", "emit-module":
		out = &CompileOutput{}
	case "merge-module":
		out = &MergeModuleOutput{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutput, hdr.Name)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", hdr.Name, err)
	}
	return out, nil
}

func hasAnySuffix(path string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
