package parser

import "strings"

// rawPrefix is a textual tag the compiler prints outside of JSON bodies.
type rawPrefix struct {
	text    string
	failure bool
}

var rawPrefixes = []rawPrefix{
	{"<unknown>:0: error: ", true},
	{"<unknown>:0: warning: ", false},
	{"<unknown>:0: note: ", false},
	{"<unknown>:0: remark: ", false},
	{"error: ", true},
	{"warning: ", false},
	{"note: ", false},
	{"remark: ", false},
}

// matchRawPrefix reports whether line is a raw diagnostic and whether it
// signals failure.
func matchRawPrefix(line string) (matched, failure bool) {
	for _, p := range rawPrefixes {
		if strings.HasPrefix(line, p.text) {
			return true, p.failure
		}
	}
	return false, false
}

// parseDirective returns the body length announced by line.
func parseDirective(line string) (int, bool) {
	if line == "" || len(line) > 18 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
