package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igolaizola/senryu/internal/generate"
	"github.com/igolaizola/senryu/internal/llm"
	"github.com/igolaizola/senryu/internal/mora"
	"github.com/igolaizola/senryu/internal/reading"
	"github.com/igolaizola/senryu/internal/recovery"
	"github.com/igolaizola/senryu/internal/report"
	"github.com/igolaizola/senryu/internal/scoring"
	"github.com/igolaizola/senryu/internal/senryu"
	"github.com/igolaizola/senryu/internal/style"
)

// MinOriginals is the corpus size below which style extraction gets weak.
const MinOriginals = 10

const (
	stopDone  = "completed"
	stopEmpty = "no candidate passed the 5-7-5 filter"
)

// Guidance is logged when no candidate survives the rule filter.
var Guidance = []string{
	"raise the number of generated candidates (N_GENERATE or --n-generate)",
	"try a different model (OLLAMA_MODEL or --model)",
	"add more originals, at least 10 and ideally around 100",
}

type Runner struct {
	cfg        Config
	client     llm.Client
	phonetizer mora.Phonetizer
	logger     *zap.Logger
}

type Option func(*Runner)

// WithClient replaces the backend built from the LLM config.
func WithClient(c llm.Client) Option {
	return func(r *Runner) { r.client = c }
}

// WithPhonetizer replaces the kagome reader built from the reading config.
func WithPhonetizer(p mora.Phonetizer) Option {
	return func(r *Runner) { r.phonetizer = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRunner(cfg Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Result struct {
	RunID     string
	OutDir    string
	Empty     bool
	Generated int
	Survivors int
	Ranked    []senryu.ScoredCandidate
	Rejected  []scoring.Ruled
	Markdown  string
}

type RunLog struct {
	RunID            string          `json:"runId"`
	Originals        string          `json:"originals"`
	OriginalsLoaded  int             `json:"originalsLoaded"`
	OriginalsSkipped int             `json:"originalsSkipped"`
	Provider         string          `json:"provider"`
	Model            string          `json:"model,omitempty"`
	Temperature      float64         `json:"temperature"`
	Requested        int             `json:"requested"`
	Generation       generate.Stats  `json:"generation"`
	Generated        int             `json:"generated"`
	Survivors        int             `json:"survivors"`
	Rejected         int             `json:"rejected"`
	RejectedSamples  []scoring.Ruled `json:"rejectedSamples"`
	Judged           bool            `json:"judged"`
	Kept             int             `json:"kept"`
	StoppedReason    string          `json:"stoppedReason"`
	StartedAt        time.Time       `json:"startedAt"`
	CompletedAt      time.Time       `json:"completedAt"`
}

// Execute runs style extraction, generation, scoring and report writing.
func (r *Runner) Execute(ctx context.Context) (Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))
	outDir := r.cfg.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	originals, skipped, err := senryu.LoadOriginals(r.cfg.Originals)
	if err != nil {
		return Result{}, err
	}
	if len(originals) == 0 {
		return Result{}, fmt.Errorf("no usable originals in %s", r.cfg.Originals)
	}
	if skipped > 0 {
		log.Info("skipped originals without three phrases", zap.Int("skipped", skipped))
	}
	if len(originals) < MinOriginals {
		log.Warn("few originals, style extraction will be weak",
			zap.Int("originals", len(originals)),
			zap.Int("recommended", MinOriginals),
		)
	}
	texts := senryu.RawTexts(originals)

	client, err := r.llmClient(ctx)
	if err != nil {
		return Result{}, err
	}
	if c, ok := client.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				log.Warn("close llm client", zap.Error(err))
			}
		}()
	}
	counter, err := r.counter()
	if err != nil {
		return Result{}, err
	}

	log.Info("extracting style profile", zap.Int("originals", len(originals)))
	profile, err := style.Build(ctx, client, texts)
	if err != nil {
		return Result{}, err
	}
	if missing := style.Missing(profile); len(missing) > 0 {
		log.Debug("style profile is missing keys", zap.Strings("keys", missing))
	}
	if err := report.WriteJSON(filepath.Join(outDir, report.StyleProfile), profile); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", report.StyleProfile, err)
	}

	gen := generate.New(client,
		generate.WithBatchSize(r.cfg.Generation.BatchSize),
		generate.WithMaxRetries(r.cfg.Generation.MaxRetries),
		generate.WithRecoverer(recovery.New(
			recovery.WithMaxAttempts(r.cfg.Generation.MaxParseAttempts),
			recovery.WithLogger(log),
		)),
		generate.WithLogger(log),
	)
	cands, stats, err := gen.GenerateWithStats(ctx, profile, texts, r.cfg.Generation.N)
	if err != nil {
		return Result{}, fmt.Errorf("generate candidates: %w", err)
	}
	log.Info("generated candidates", zap.Int("candidates", len(cands)), zap.Int("requested", r.cfg.Generation.N))

	var judge llm.Client
	if r.cfg.Scoring.Judge {
		judge = client
	}
	pipeline := scoring.NewPipeline(counter,
		scoring.WithJudge(judge),
		scoring.WithKeep(r.cfg.Scoring.Keep),
		scoring.WithLogger(log),
	)
	outcome, err := pipeline.Run(ctx, profile, cands)
	if err != nil {
		return Result{}, err
	}

	runLog := RunLog{
		RunID:            runID,
		Originals:        r.cfg.Originals,
		OriginalsLoaded:  len(originals),
		OriginalsSkipped: skipped,
		Provider:         r.cfg.LLM.Provider,
		Model:            r.cfg.LLM.Model,
		Temperature:      r.cfg.LLM.Temperature,
		Requested:        r.cfg.Generation.N,
		Generation:       stats,
		Generated:        len(cands),
		Survivors:        outcome.Survivors,
		Rejected:         outcome.RejectedCount,
		RejectedSamples:  outcome.Rejected,
		Judged:           outcome.Judged,
		Kept:             len(outcome.Ranked),
		StoppedReason:    stopDone,
		StartedAt:        start,
	}
	res := Result{
		RunID:     runID,
		OutDir:    outDir,
		Empty:     outcome.Empty,
		Generated: len(cands),
		Survivors: outcome.Survivors,
		Ranked:    outcome.Ranked,
		Rejected:  outcome.Rejected,
	}

	if outcome.Empty {
		runLog.StoppedReason = stopEmpty
		for i, s := range outcome.Rejected {
			log.Warn("rejected sample",
				zap.Int("n", i+1),
				zap.Float64("score", s.Score),
				zap.Strings("reasons", s.Reasons),
				zap.Strings("lines", s.Candidate.Lines),
			)
		}
		log.Warn(stopEmpty, zap.Int("generated", len(cands)), zap.Strings("try", Guidance))
	} else {
		rows := report.Rows(outcome.Ranked)
		if err := report.WriteResults(outDir, rows); err != nil {
			return Result{}, err
		}
		res.Markdown = report.Markdown(rows)
	}

	runLog.CompletedAt = time.Now()
	if err := report.WriteJSON(filepath.Join(outDir, report.RunLog), runLog); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", report.RunLog, err)
	}
	log.Info("run finished",
		zap.String("out", outDir),
		zap.Int("kept", len(outcome.Ranked)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) llmClient(ctx context.Context) (llm.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	wd, _ := os.Getwd()
	return llm.New(ctx, llm.Options{
		Provider:    r.cfg.LLM.Provider,
		Model:       r.cfg.LLM.Model,
		BaseURL:     r.cfg.LLM.BaseURL,
		APIKey:      r.cfg.LLM.APIKey,
		Temperature: r.cfg.LLM.Temperature,
		WorkDir:     wd,
		Logger:      r.logger,
	})
}

func (r *Runner) counter() (*mora.Counter, error) {
	opts := []mora.Option{mora.WithLogger(r.logger)}
	switch {
	case r.phonetizer != nil:
		opts = append(opts, mora.WithPhonetizer(r.phonetizer))
	case r.cfg.Reading.Enabled:
		p, err := reading.New(r.cfg.Reading.Dict)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mora.WithPhonetizer(p))
	}
	return mora.NewCounter(opts...), nil
}
