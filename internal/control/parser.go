// Package control reads and writes single Debian control stanzas.
package control

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ralt/aptrepo/internal/models"
)

// ParseError reports a malformed control line
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads one stanza into its fields, keeping their order. Continuation
// lines are kept verbatim, including their leading whitespace, joined to the
// field value with "\n". Blank lines before and after the stanza are ignored.
func Parse(data []byte) ([]models.Field, error) {
	if !utf8.Valid(data) {
		return nil, formatError(&ParseError{Line: 0, Msg: "control data is not valid UTF-8"})
	}

	var fields []models.Field
	seen := make(map[string]bool)
	ended := false

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		lineNo := i + 1
		line = strings.TrimSuffix(line, "\r")

		if strings.TrimSpace(line) == "" {
			if len(fields) > 0 {
				ended = true
			}
			continue
		}

		if ended {
			return nil, formatError(&ParseError{Line: lineNo, Msg: "unexpected data after end of stanza"})
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(fields) == 0 {
				return nil, formatError(&ParseError{Line: lineNo, Msg: "continuation line before any field"})
			}
			last := &fields[len(fields)-1]
			last.Value += "\n" + line
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, formatError(&ParseError{Line: lineNo, Msg: fmt.Sprintf("missing ':' in %q", line)})
		}
		if name == "" || strings.ContainsAny(name, " \t") {
			return nil, formatError(&ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid field name %q", name)})
		}
		if seen[strings.ToLower(name)] {
			return nil, formatError(&ParseError{Line: lineNo, Msg: fmt.Sprintf("duplicate field %q", name)})
		}
		seen[strings.ToLower(name)] = true

		fields = append(fields, models.Field{Name: name, Value: strings.TrimSpace(value)})
	}

	if len(fields) == 0 {
		return nil, formatError(&ParseError{Line: 0, Msg: "empty control stanza"})
	}

	return fields, nil
}

func formatError(err *ParseError) error {
	return models.WrapError(models.ErrFormat, "", "invalid control data", err)
}

// WriteField writes a single field in control syntax
func WriteField(w io.Writer, name, value string) error {
	var err error
	switch {
	case value == "":
		_, err = fmt.Fprintf(w, "%s:\n", name)
	case strings.HasPrefix(value, "\n"):
		_, err = fmt.Fprintf(w, "%s:%s\n", name, value)
	default:
		_, err = fmt.Fprintf(w, "%s: %s\n", name, value)
	}
	return err
}

// Format renders fields as a stanza without the trailing blank line
func Format(fields []models.Field) []byte {
	var buf bytes.Buffer
	for _, f := range fields {
		WriteField(&buf, f.Name, f.Value)
	}
	return buf.Bytes()
}
