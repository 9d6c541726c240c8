package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNoArray  = errors.New("model did not return a JSON array")
	ErrNoObject = errors.New("model did not return a JSON object")
)

const excerptLen = 1000

// ParseError is returned when no repair makes the extracted text parse.
type ParseError struct {
	Attempts int
	// Offset is the byte offset of the offending character.
	Offset   int
	Line     int
	Column   int
	LineText string
	// Excerpt holds the first characters of the text that failed to parse.
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "json parse failed after %d attempts: %v\n", e.Attempts, e.Err)
	fmt.Fprintf(&b, "at line %d, column %d:\n", e.Line, e.Column)
	b.WriteString(e.LineText)
	b.WriteByte('\n')
	if e.Column > 1 {
		b.WriteString(strings.Repeat(" ", e.Column-1))
	}
	b.WriteString("^\n\n")
	fmt.Fprintf(&b, "extracted json (first %d chars):\n%s", excerptLen, e.Excerpt)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(text string, err error, attempts int) *ParseError {
	pos := errorOffset(err, len(text)) - 1
	if pos < 0 {
		pos = 0
	}
	if pos > len(text) {
		pos = len(text)
	}
	line, col, lineText := position(text, pos)
	return &ParseError{
		Attempts: attempts,
		Offset:   pos,
		Line:     line,
		Column:   col,
		LineText: lineText,
		Excerpt:  excerpt(text, excerptLen),
		Err:      err,
	}
}

// errorOffset returns the decoder offset carried by err, which points just
// past the offending byte. Errors without an offset map to the end of text.
func errorOffset(err error, fallback int) int {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return int(syn.Offset)
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		return int(typ.Offset)
	}
	return fallback
}

// position returns the 1-based line and rune column of byte offset pos.
func position(text string, pos int) (int, int, string) {
	before := text[:pos]
	line := strings.Count(before, "\n") + 1
	start := strings.LastIndexByte(before, '\n') + 1
	col := utf8.RuneCountInString(text[start:pos]) + 1
	end := strings.IndexByte(text[start:], '\n')
	if end < 0 {
		return line, col, text[start:]
	}
	return line, col, text[start : start+end]
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
