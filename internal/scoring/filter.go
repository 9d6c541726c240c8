package scoring

import "github.com/igolaizola/senryu/internal/senryu"

// MaxRejectedSamples bounds the rejected candidates kept for reporting.
const MaxRejectedSamples = 3

// Ruled is a candidate with its rule score.
type Ruled struct {
	Candidate senryu.Candidate `json:"candidate"`
	Score     float64          `json:"rule"`
	Reasons   []string         `json:"reasons"`
}

type FilterResult struct {
	Kept []Ruled
	// Rejected holds the first few rejected candidates.
	Rejected      []Ruled
	RejectedCount int
}

// Filter keeps the candidates whose rule score exceeds SurvivalThreshold,
// preserving their order.
func Filter(cands []senryu.Candidate, checker PatternChecker) FilterResult {
	var res FilterResult
	for _, c := range cands {
		score, reasons := RuleScore(c, checker)
		r := Ruled{Candidate: c, Score: score, Reasons: reasons}
		if score > SurvivalThreshold {
			res.Kept = append(res.Kept, r)
			continue
		}
		res.RejectedCount++
		if len(res.Rejected) < MaxRejectedSamples {
			res.Rejected = append(res.Rejected, r)
		}
	}
	return res
}
