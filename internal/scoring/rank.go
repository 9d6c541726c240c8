package scoring

import (
	"sort"

	"github.com/igolaizola/senryu/internal/senryu"
)

// DefaultKeep is the number of ranked candidates kept by default.
const DefaultKeep = 30

// Rank merges rule and model scores, orders by total score descending and
// keeps the first keep entries. Equal totals keep their generation order.
// A nil modelScores means the judge was disabled and every model score is 0.
func Rank(kept []Ruled, modelScores []float64, keep int) []senryu.ScoredCandidate {
	out := make([]senryu.ScoredCandidate, 0, len(kept))
	for i, r := range kept {
		model := 0.0
		if i < len(modelScores) {
			model = modelScores[i]
		}
		out = append(out, senryu.ScoredCandidate{
			Candidate:  r.Candidate,
			RuleScore:  r.Score,
			ModelScore: model,
			TotalScore: r.Score + model,
			Reasons:    append([]string(nil), r.Reasons...),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	if keep > 0 && len(out) > keep {
		out = out[:keep]
	}
	return out
}
