package scoring

import (
	"context"

	"go.uber.org/zap"

	"github.com/igolaizola/senryu/internal/llm"
	"github.com/igolaizola/senryu/internal/senryu"
)

// Outcome is the result of scoring one generation run. Empty is set when no
// candidate survived the rule filter, which is not an error.
type Outcome struct {
	Ranked        []senryu.ScoredCandidate `json:"ranked"`
	Survivors     int                      `json:"survivors"`
	Rejected      []Ruled                  `json:"rejectedSamples"`
	RejectedCount int                      `json:"rejected"`
	Judged        bool                     `json:"judged"`
	Empty         bool                     `json:"empty"`
}

// Pipeline filters candidates by rule score, optionally asks a judge model
// for a second score and ranks the survivors.
type Pipeline struct {
	checker PatternChecker
	judge   llm.Client
	keep    int
	logger  *zap.Logger
}

type Option func(*Pipeline)

// WithJudge enables model scoring. A nil client leaves it disabled.
func WithJudge(c llm.Client) Option {
	return func(p *Pipeline) { p.judge = c }
}

func WithKeep(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.keep = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPipeline(checker PatternChecker, opts ...Option) *Pipeline {
	p := &Pipeline{checker: checker, keep: DefaultKeep, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Run(ctx context.Context, profile senryu.StyleProfile, cands []senryu.Candidate) (Outcome, error) {
	fr := Filter(cands, p.checker)
	out := Outcome{
		Survivors:     len(fr.Kept),
		Rejected:      fr.Rejected,
		RejectedCount: fr.RejectedCount,
	}
	p.logger.Info("rule filter done",
		zap.Int("candidates", len(cands)),
		zap.Int("survivors", len(fr.Kept)),
		zap.Int("rejected", fr.RejectedCount),
	)
	if len(fr.Kept) == 0 {
		out.Empty = true
		out.Ranked = []senryu.ScoredCandidate{}
		return out, nil
	}

	var model []float64
	if p.judge != nil {
		kept := make([]senryu.Candidate, len(fr.Kept))
		for i, r := range fr.Kept {
			kept[i] = r.Candidate
		}
		scores, err := Judge(ctx, p.judge, profile, kept)
		if err != nil {
			return out, err
		}
		model = scores
		out.Judged = true
	}
	out.Ranked = Rank(fr.Kept, model, p.keep)
	return out, nil
}
