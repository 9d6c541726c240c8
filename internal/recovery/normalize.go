package recovery

import (
	"regexp"
	"strings"

	"github.com/igolaizola/senryu/internal/senryu"
)

// Drop reasons recorded for elements removed during normalisation.
const (
	ReasonNotObject    = "not an object"
	ReasonCJK          = "cjk ideograph in lines"
	ReasonMissingLines = "missing lines"
	ReasonNonString    = "non-string line"
)

// DropRecord describes one parsed element that did not become a candidate.
type DropRecord struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

var fullWidthSpaceRe = regexp.MustCompile(`　+`)

func isCJKIdeograph(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func hasCJK(s string) bool {
	return strings.IndexFunc(s, isCJKIdeograph) >= 0
}

// normalize turns decoded elements into candidates with exactly three lines.
func normalize(items []any) ([]senryu.Candidate, []DropRecord) {
	var (
		cands []senryu.Candidate
		drops []DropRecord
	)
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			drops = append(drops, DropRecord{Index: i, Reason: ReasonNotObject})
			continue
		}
		lines, reason := candidateLines(obj)
		if reason != "" {
			drops = append(drops, DropRecord{Index: i, Reason: reason})
			continue
		}
		typ, _ := obj["type"].(string)
		note, _ := obj["note"].(string)
		cands = append(cands, senryu.Candidate{Type: typ, Lines: lines, Note: note})
	}
	return cands, drops
}

func candidateLines(obj map[string]any) ([]string, string) {
	raw, present := obj["lines"]
	if present && linesHaveCJK(raw) {
		return nil, ReasonCJK
	}

	var parts []any
	switch v := raw.(type) {
	case []any:
		parts = v
	default:
		switch {
		case hasLegacyParts(obj):
			parts = legacyParts(obj)
		case present:
			s, ok := v.(string)
			if !ok {
				return nil, ReasonNonString
			}
			parts = []any{s}
		default:
			return nil, ReasonMissingLines
		}
	}

	lines := make([]string, 0, 3)
	for _, p := range parts {
		s, ok := p.(string)
		if !ok {
			return nil, ReasonNonString
		}
		lines = append(lines, s)
	}
	return fitThree(lines), ""
}

func linesHaveCJK(raw any) bool {
	switch v := raw.(type) {
	case string:
		return hasCJK(v)
	case []any:
		for _, p := range v {
			if s, ok := p.(string); ok && hasCJK(s) {
				return true
			}
		}
	}
	return false
}

// hasLegacyParts reports whether the element uses the upper/middle/lower
// phrase keys instead of a lines array.
func hasLegacyParts(obj map[string]any) bool {
	_, mid := obj["中句"]
	_, low := obj["下句"]
	return mid && low
}

func legacyParts(obj map[string]any) []any {
	var parts []any
	for _, key := range []string{"上句", "中句", "下句"} {
		v, ok := obj[key]
		if !ok {
			if key == "上句" {
				parts = append(parts, "")
			}
			continue
		}
		if list, ok := v.([]any); ok {
			parts = append(parts, list...)
			continue
		}
		parts = append(parts, v)
	}
	return parts
}

func fitThree(lines []string) []string {
	if len(lines) == 1 {
		lines = splitSingle(lines[0])
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for len(lines) < 3 {
		lines = append(lines, "")
	}
	return lines
}

// splitSingle breaks a poem delivered as one string into its lines, first on
// full-width spaces, then on any whitespace.
func splitSingle(s string) []string {
	var parts []string
	for _, p := range fullWidthSpaceRe.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		parts = strings.Fields(s)
	}
	if len(parts) < 2 {
		return []string{s}
	}
	return parts
}
