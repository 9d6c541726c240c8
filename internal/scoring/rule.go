package scoring

import (
	"strings"

	"github.com/igolaizola/senryu/internal/senryu"
)

const (
	// SurvivalThreshold is the rule score a candidate must exceed to be kept.
	SurvivalThreshold = -10.0

	scoreNotThreeLines = -999.0
	scoreOffPattern    = -50.0
	scorePattern       = 10.0
	penaltyExplanatory = 2.0
	penaltyMonotonous  = 1.5
)

const (
	ReasonNotThreeLines = "not three lines"
	ReasonOffPattern    = "off 5-7-5"
	ReasonPattern       = "5-7-5 OK"
	ReasonExplanatory   = "explanatory ending"
	ReasonMonotonous    = "monotonous"
)

var explanatoryEndings = []string{"です", "ます", "でした", "ますね"}

// PatternChecker validates the 5-7-5 form. *mora.Counter implements it.
type PatternChecker interface {
	IsFiveSevenFive(lines []string) bool
}

// RuleScore is the deterministic score of a candidate and the reasons for it.
func RuleScore(c senryu.Candidate, checker PatternChecker) (float64, []string) {
	lines := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = strings.TrimSpace(l)
	}
	if len(lines) != 3 {
		return scoreNotThreeLines, []string{ReasonNotThreeLines}
	}
	if !checker.IsFiveSevenFive(lines) {
		return scoreOffPattern, []string{ReasonOffPattern}
	}

	score := scorePattern
	reasons := make([]string, 0, 3)
	reasons = append(reasons, ReasonPattern)

	joined := strings.Join(lines, "")
	if hasAnySuffix(joined, explanatoryEndings) {
		score -= penaltyExplanatory
		reasons = append(reasons, ReasonExplanatory)
	}

	runes := []rune(joined)
	if distinctRunes(runes) < max(10, len(runes)/4) {
		score -= penaltyMonotonous
		reasons = append(reasons, ReasonMonotonous)
	}
	return score, reasons
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func distinctRunes(rs []rune) int {
	seen := make(map[rune]struct{}, len(rs))
	for _, r := range rs {
		seen[r] = struct{}{}
	}
	return len(seen)
}
