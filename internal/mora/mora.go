// Package mora counts Japanese phonetic units and checks the 5-7-5 form.
package mora

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Target is the accepted mora pattern.
var Target = [3]int{5, 7, 5}

// Phonetizer converts arbitrary Japanese text into kana.
type Phonetizer interface {
	Kana(text string) (string, error)
}

// Counter counts moras. A nil Phonetizer restricts counting to the kana
// already present in the text.
type Counter struct {
	phonetizer Phonetizer
	logger     *zap.Logger
}

type Option func(*Counter)

func WithPhonetizer(p Phonetizer) Option {
	return func(c *Counter) { c.phonetizer = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Counter) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCounter(opts ...Option) *Counter {
	c := &Counter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count returns the number of moras in text.
func (c *Counter) Count(text string) int {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" {
		return 0
	}
	if c != nil && c.phonetizer != nil {
		kana, err := c.phonetizer.Kana(text)
		if err != nil {
			c.logger.Debug("phonetic conversion failed, using kana fallback", zap.String("text", text), zap.Error(err))
		} else if k := FilterKana(kana); k != "" {
			return CountKana(k)
		}
	}
	kana := FilterKana(text)
	if kana == "" {
		return max(1, utf8.RuneCountInString(text))
	}
	return CountKana(kana)
}

// Pattern returns the mora count of every line.
func (c *Counter) Pattern(lines []string) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = c.Count(l)
	}
	return out
}

// IsFiveSevenFive reports whether lines are exactly three phrases of 5, 7
// and 5 moras.
func (c *Counter) IsFiveSevenFive(lines []string) bool {
	if len(lines) != 3 {
		return false
	}
	p := c.Pattern(lines)
	return p[0] == Target[0] && p[1] == Target[1] && p[2] == Target[2]
}
