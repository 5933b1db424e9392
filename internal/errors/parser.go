package errors

import (
	"regexp"
	"strconv"
	"strings"
)

// Diagnostic is one located problem reported by a template engine.
type Diagnostic struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

type diagnosticPattern struct {
	regex *regexp.Regexp
	parse func(m []string) Diagnostic
}

var diagnosticPatterns = []diagnosticPattern{
	{
		// file:line:col: message
		regex: regexp.MustCompile(`^(.+?):(\d+):(\d+): (.+)$`),
		parse: func(m []string) Diagnostic {
			return Diagnostic{File: m[1], Line: atoi(m[2]), Column: atoi(m[3]), Message: m[4]}
		},
	},
	{
		// templ: name (file:line:col): message
		regex: regexp.MustCompile(`^templ: (.+?) \((.+?):(\d+):(\d+)\): (.+)$`),
		parse: func(m []string) Diagnostic {
			return Diagnostic{File: m[2], Line: atoi(m[3]), Column: atoi(m[4]), Message: m[1] + ": " + m[5]}
		},
	},
	{
		// parse error messages carrying "line N, col M"
		regex: regexp.MustCompile(`^(.+?): (.*line (\d+), col (\d+).*)$`),
		parse: func(m []string) Diagnostic {
			return Diagnostic{File: m[1], Line: atoi(m[3]), Column: atoi(m[4]), Message: m[2]}
		},
	},
}

// ParseEngineOutput extracts located diagnostics from template engine
// output. Lines that carry no location are ignored.
func ParseEngineOutput(output string) []Diagnostic {
	var out []Diagnostic
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, p := range diagnosticPatterns {
			if m := p.regex.FindStringSubmatch(line); m != nil {
				out = append(out, p.parse(m))
				break
			}
		}
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
