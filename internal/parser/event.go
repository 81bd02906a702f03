package parser

// Event is one semantic item produced from the compiler stream.
// The concrete types are Raw, CompilingFile and GeneratedHeader.
type Event interface {
	isEvent()
}

// Raw is compiler text passed through unchanged, without its line terminator.
type Raw struct {
	Text string
}

// CompilingFile reports that the compiler started on Path.
type CompilingFile struct {
	Path string
}

// GeneratedHeader reports a public header emitted by module merging.
type GeneratedHeader struct {
	Name string
}

func (Raw) isEvent()             {}
func (CompilingFile) isEvent()   {}
func (GeneratedHeader) isEvent() {}
