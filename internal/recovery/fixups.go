package recovery

import (
	"regexp"
	"strings"
)

// fixup is one named, pure text transformation applied to malformed JSON.
type fixup struct {
	name  string
	apply func(string) string
}

func replaceRe(re *regexp.Regexp, repl string) func(string) string {
	return func(s string) string { return re.ReplaceAllString(s, repl) }
}

var (
	escapedQuoteBracketRe = regexp.MustCompile(`\\"\]`)
	lineContinuationRe    = regexp.MustCompile(`\\\n`)
	adjacentObjectsRe     = regexp.MustCompile(`\}\s*\{`)
	commaBeforeBracketRe  = regexp.MustCompile(`",\s*\]`)
	objectArrayCloseRe    = regexp.MustCompile(`\}\],\s*`)
	unclosedLinesRe       = regexp.MustCompile(`("lines":\s*\[[^\]]*)"([^"]+)",\s*"note"`)
	strayCloseNoteRe      = regexp.MustCompile(`\},\s*"note"`)
	strayCloseTypeRe      = regexp.MustCompile(`\},\s*"type"`)
	noteBracketCloseRe    = regexp.MustCompile(`"note":\s*"([^"]*)"\],\s*`)
	noteParenCommaRe      = regexp.MustCompile(`"note":\s*"([^"]*)"\)\s*,`)
	noteParenEndRe        = regexp.MustCompile(`"note":\s*"([^"]*)"\)(\s*\]?\s*)$`)
	trailingCommaRe       = regexp.MustCompile(`("|\}|\]|\d|true|false|null)\s*,\s*([\]}])`)
	danglingNoteRe        = regexp.MustCompile(`,\s*"note":\s*"[^"]*$`)
	incompleteTailRe      = regexp.MustCompile(`,\s*\{[^}]*$`)
	finalCommaRe          = regexp.MustCompile(`,\s*$`)
)

// sanitize runs once before the first parse. It only removes characters that
// can never appear raw in valid JSON, so well-formed input is untouched.
var sanitize = fixup{name: "strip-control", apply: stripControl}

// ladder holds the cumulative repair stages. Stage i runs after parse
// attempt i+1 fails.
var ladder = [][]fixup{
	{
		{"unescape-quote-bracket", replaceRe(escapedQuoteBracketRe, `"]`)},
		{"unescape-quotes", func(s string) string { return strings.ReplaceAll(s, `\"`, `"`) }},
		{"drop-line-continuation", replaceRe(lineContinuationRe, "\n")},
		{"join-objects", replaceRe(adjacentObjectsRe, "}, {")},
		{"strip-comma-before-bracket", replaceRe(commaBeforeBracketRe, `"]`)},
		{"fix-object-array-close", replaceRe(objectArrayCloseRe, "}, ")},
		{"close-lines-before-note", replaceRe(unclosedLinesRe, `$1"$2"], "note"`)},
	},
	{
		{"drop-stray-close-note", replaceRe(strayCloseNoteRe, `, "note"`)},
		{"drop-stray-close-type", replaceRe(strayCloseTypeRe, `, "type"`)},
		{"note-bracket-close", replaceRe(noteBracketCloseRe, `"note":"$1"}, `)},
		{"note-paren-close", func(s string) string {
			s = noteParenCommaRe.ReplaceAllString(s, `"note":"$1"},`)
			return noteParenEndRe.ReplaceAllString(s, `"note":"$1"}$2`)
		}},
		{"escape-interior-quotes", escapeInteriorQuotes},
	},
	{
		{"drop-invalid-escapes", dropInvalidEscapes},
		{"join-objects", replaceRe(adjacentObjectsRe, "}, {")},
		{"join-strings", joinStrings},
		{"strip-trailing-commas", replaceRe(trailingCommaRe, "$1$2")},
	},
	{
		{"drop-dangling-note", replaceRe(danglingNoteRe, "")},
		{"drop-incomplete-tail", replaceRe(incompleteTailRe, "")},
		{"drop-unclosed-object-lines", dropUnclosedObjectLines},
		{"drop-cjk-lines", dropCJKLines},
		{"strip-trailing-commas", replaceRe(trailingCommaRe, "$1$2")},
		{"balance-braces", balanceBraces},
		{"close-array", closeArray},
	},
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// escapeInteriorQuotes escapes quotes that sit inside a string value. A quote
// ends a string only when the next non-space character is structural.
func escapeInteriorQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !inString {
			if ch == '"' {
				inString = true
			}
			b.WriteByte(ch)
			continue
		}
		switch ch {
		case '\\':
			b.WriteByte(ch)
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			if closesString(s[i+1:]) {
				inString = false
				b.WriteByte(ch)
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// joinStrings inserts the missing comma between a closed string and a string
// that follows it. Quotes inside string values, including whitespace-only
// values, are never treated as a boundary.
func joinStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		b.WriteByte(ch)
		switch {
		case inString && ch == '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case ch == '"' && !inString:
			inString = true
		case ch == '"':
			inString = false
			rest := strings.TrimLeft(s[i+1:], " \t\r\n")
			if strings.HasPrefix(rest, `"`) {
				b.WriteByte(',')
			}
		}
	}
	return b.String()
}

func closesString(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	return strings.ContainsRune(`,:]}"{`, rune(rest[0]))
}

// dropInvalidEscapes removes backslashes that do not start a JSON escape.
func dropInvalidEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(s) && strings.IndexByte(`\/bfnrt"u`, s[i+1]) >= 0 {
			b.WriteByte(ch)
			b.WriteByte(s[i+1])
			i++
		}
	}
	return b.String()
}

// dropUnclosedObjectLines removes single-line candidate objects that were cut
// off before their closing brace.
func dropUnclosedObjectLines(s string) string {
	return filterLines(s, func(line string) bool {
		return !(strings.Contains(line, "{") && !strings.Contains(line, "}") && strings.Contains(line, `"lines"`))
	})
}

// dropCJKLines removes lines that carry a CJK ideograph inside a string literal.
func dropCJKLines(s string) string {
	return filterLines(s, func(line string) bool { return !cjkInString(line) })
}

func filterLines(s string, keep func(string) bool) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func cjkInString(line string) bool {
	inString := false
	prev := rune(0)
	for _, r := range line {
		switch {
		case r == '"' && prev != '\\':
			inString = !inString
		case inString && isCJKIdeograph(r):
			return true
		}
		prev = r
	}
	return false
}

func balanceBraces(s string) string {
	open := strings.Count(s, "{")
	closed := strings.Count(s, "}")
	if open <= closed {
		return s
	}
	s = strings.TrimRight(strings.TrimRight(s, " \t\r\n"), "]")
	return s + strings.Repeat("}", open-closed) + "]"
}

func closeArray(s string) string {
	s = finalCommaRe.ReplaceAllString(strings.TrimRight(s, " \t\r\n"), "")
	if strings.HasSuffix(s, "]") {
		return s
	}
	return strings.TrimRight(s, ",") + "]"
}
