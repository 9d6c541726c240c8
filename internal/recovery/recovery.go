// Package recovery extracts candidate arrays from free-form model output and
// repairs the JSON when the model gets it wrong.
package recovery

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/igolaizola/senryu/internal/senryu"
)

// MaxAttempts is the default number of full parses before partial recovery.
const MaxAttempts = 5

// Report describes how a recovered array was obtained.
type Report struct {
	Attempts int          `json:"attempts"`
	Fixups   []string     `json:"fixups,omitempty"`
	Partial  bool         `json:"partial"`
	Parsed   int          `json:"parsed"`
	Kept     int          `json:"kept"`
	Dropped  []DropRecord `json:"dropped,omitempty"`
}

type Recoverer struct {
	maxAttempts int
	logger      *zap.Logger
}

type Option func(*Recoverer)

func WithMaxAttempts(n int) Option {
	return func(r *Recoverer) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Recoverer) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(opts ...Option) *Recoverer {
	r := &Recoverer{maxAttempts: MaxAttempts, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ExtractArray runs a default Recoverer.
func ExtractArray(text string, expected int) ([]senryu.Candidate, Report, error) {
	return New().ExtractArray(text, expected)
}

// ExtractArray locates the JSON array in text, repairs it if needed and
// normalises every element into a three-line candidate. expected is the
// number of candidates the caller asked for and only drives logging.
func (r *Recoverer) ExtractArray(text string, expected int) ([]senryu.Candidate, Report, error) {
	raw, err := LocateArray(text)
	if err != nil {
		return nil, Report{}, err
	}

	work := sanitize.apply(raw)
	var rep Report
	var lastErr error
	for i := 0; i < r.maxAttempts; i++ {
		rep.Attempts = i + 1
		items, err := parseArray(work)
		if err == nil {
			return r.finish(items, rep, expected)
		}
		lastErr = err
		r.logger.Debug("json parse attempt failed",
			zap.Int("attempt", rep.Attempts),
			zap.Error(err),
		)
		if i >= len(ladder) || i == r.maxAttempts-1 {
			break
		}
		for _, fx := range ladder[i] {
			work = fx.apply(work)
			rep.Fixups = append(rep.Fixups, fx.name)
		}
	}

	if items, ok := partialParse(work, lastErr); ok {
		partial := rep
		partial.Partial = true
		cands, out, _ := r.finish(items, partial, expected)
		if len(cands) > 0 {
			r.logger.Warn("partial json recovery",
				zap.Int("kept", len(cands)),
				zap.Int("expected", expected),
			)
			return cands, out, nil
		}
	}

	return nil, rep, newParseError(work, lastErr, rep.Attempts)
}

func (r *Recoverer) finish(items []any, rep Report, expected int) ([]senryu.Candidate, Report, error) {
	cands, drops := normalize(items)
	rep.Parsed = len(items)
	rep.Kept = len(cands)
	rep.Dropped = drops
	for _, d := range drops {
		r.logger.Debug("dropped element", zap.Int("index", d.Index), zap.String("reason", d.Reason))
	}
	if expected > 0 && float64(len(cands)) < float64(expected)*0.1 {
		r.logger.Warn("recovered far fewer candidates than requested",
			zap.Int("kept", len(cands)),
			zap.Int("parsed", len(items)),
			zap.Int("dropped", len(drops)),
			zap.Int("expected", expected),
		)
	}
	return cands, rep, nil
}

func parseArray(s string) ([]any, error) {
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// partialParse keeps every complete object before the decoder error. The
// decoder offset counts the offending byte, so the cut searches before it.
func partialParse(text string, err error) ([]any, bool) {
	off := errorOffset(err, len(text)+1) - 1
	off = min(max(off, 0), len(text))
	cut := strings.LastIndexByte(text[:off], '}')
	if cut <= 0 {
		return nil, false
	}
	partial := strings.TrimRight(strings.TrimSpace(text[:cut+1]), ",") + "]"
	items, perr := parseArray(partial)
	if perr != nil {
		return nil, false
	}
	return items, true
}

// LocateArray returns the JSON array embedded in text. An array wrapped in an
// object, as in {"candidates":[...]}, ends at the last closing bracket. When
// a brace follows the last closing bracket and the brackets before it do not
// balance, the array is assumed to be truncated and runs to the end of text.
func LocateArray(text string) (string, error) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", fmt.Errorf("%w: %s", ErrNoArray, excerpt(text, 200))
	}
	end := strings.LastIndexByte(text, ']')
	lastObj := strings.LastIndexByte(text, '}')
	switch {
	case end > start && (end > lastObj || closedArray(text[start:end+1])):
		return text[start : end+1], nil
	case lastObj > start:
		return text[start:], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNoArray, excerpt(text, 200))
	}
}

func closedArray(s string) bool {
	if strings.Count(s, "[") == strings.Count(s, "]") {
		return true
	}
	return json.Valid([]byte(s))
}

// ExtractObject parses the first JSON object in text. No repair ladder runs.
func ExtractObject(text string) (map[string]any, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: %s", ErrNoObject, excerpt(text, 200))
	}
	s := escapedQuoteBracketRe.ReplaceAllString(text[start:end+1], `"]`)
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, newParseError(s, err, 1)
	}
	return obj, nil
}
