package senryu

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var spaceRunRe = regexp.MustCompile(`[ 　]+`)

// Original is one entry of the input corpus.
type Original struct {
	Raw   string   `json:"raw"`
	Lines []string `json:"lines"`
}

// SplitLine splits a corpus line into its phrases. A "/" anywhere in the line
// makes it the delimiter; otherwise runs of half or full width spaces are.
func SplitLine(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parts []string
	if strings.Contains(raw, "/") {
		parts = strings.Split(raw, "/")
	} else {
		parts = spaceRunRe.Split(raw, -1)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseOriginals reads one poem per line. Lines that do not split into
// exactly three phrases are skipped and counted.
func ParseOriginals(text string) ([]Original, int) {
	var out []Original
	skipped := 0
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := strings.TrimSpace(norm.NFC.String(sc.Text()))
		if raw == "" {
			continue
		}
		parts := SplitLine(raw)
		if len(parts) != 3 {
			skipped++
			continue
		}
		out = append(out, Original{Raw: raw, Lines: parts})
	}
	return out, skipped
}

// LoadOriginals reads the corpus file at path.
func LoadOriginals(path string) ([]Original, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read originals: %w", err)
	}
	originals, skipped := ParseOriginals(strings.TrimPrefix(string(data), "\ufeff"))
	return originals, skipped, nil
}

// RawTexts returns the raw text of each original.
func RawTexts(originals []Original) []string {
	out := make([]string, 0, len(originals))
	for _, o := range originals {
		out = append(out, o.Raw)
	}
	return out
}
