// Package generate asks a language model for candidate poems in batches and
// recovers them from its output.
package generate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/igolaizola/senryu/internal/llm"
	"github.com/igolaizola/senryu/internal/recovery"
	"github.com/igolaizola/senryu/internal/senryu"
)

const (
	BatchSize  = 50
	MaxRetries = 10
)

const (
	violationParse = "JSON配列として解析できませんでした。JSON配列のみを出力してください"
	violationEmpty = "有効な候補が1件もありませんでした。lines配列を持つ要素を出力してください"
)

// Stats summarises one Generate call.
type Stats struct {
	Batches       int `json:"batches"`
	FailedBatches int `json:"failedBatches"`
	Calls         int `json:"calls"`
	ParseErrors   int `json:"parseErrors"`
	Partial       int `json:"partialRecoveries"`
	Dropped       int `json:"dropped"`
}

type Generator struct {
	client     llm.Client
	recoverer  *recovery.Recoverer
	batchSize  int
	maxRetries int
	logger     *zap.Logger
}

type Option func(*Generator)

func WithBatchSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

func WithRecoverer(r *recovery.Recoverer) Option {
	return func(g *Generator) {
		if r != nil {
			g.recoverer = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func New(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		client:     client,
		batchSize:  BatchSize,
		maxRetries: MaxRetries,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.recoverer == nil {
		g.recoverer = recovery.New(recovery.WithLogger(g.logger))
	}
	return g
}

// BatchSizes splits n into requests of at most size candidates.
func BatchSizes(n, size int) []int {
	if n <= 0 {
		return nil
	}
	if size <= 0 || n <= size {
		return []int{n}
	}
	var out []int
	for rest := n; rest > 0; rest -= size {
		out = append(out, min(size, rest))
	}
	return out
}

// Generate asks for n candidates in the style described by profile.
func (g *Generator) Generate(ctx context.Context, profile senryu.StyleProfile, seeds []string, n int) ([]senryu.Candidate, error) {
	cands, _, err := g.GenerateWithStats(ctx, profile, seeds, n)
	return cands, err
}

// GenerateWithStats is Generate plus per-call bookkeeping. With a single
// batch the error of the final attempt is returned. With several batches a
// batch that never yields candidates is skipped.
func (g *Generator) GenerateWithStats(ctx context.Context, profile senryu.StyleProfile, seeds []string, n int) ([]senryu.Candidate, Stats, error) {
	var stats Stats
	profileJSON, err := profile.JSON()
	if err != nil {
		return nil, stats, fmt.Errorf("encode style profile: %w", err)
	}

	sizes := BatchSizes(n, g.batchSize)
	stats.Batches = len(sizes)
	if len(sizes) == 0 {
		return []senryu.Candidate{}, stats, nil
	}
	if len(sizes) == 1 {
		cands, err := g.runBatch(ctx, profileJSON, seeds, sizes[0], &stats)
		if err != nil {
			return nil, stats, err
		}
		if len(cands) == 0 {
			cands = []senryu.Candidate{}
		}
		return cands, stats, nil
	}

	g.logger.Info("splitting generation into batches",
		zap.Int("requested", n),
		zap.Int("batches", len(sizes)),
	)
	all := []senryu.Candidate{}
	for i, size := range sizes {
		g.logger.Info("generating batch",
			zap.Int("batch", i+1),
			zap.Int("of", len(sizes)),
			zap.Int("size", size),
		)
		cands, err := g.runBatch(ctx, profileJSON, seeds, size, &stats)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return all, stats, err
		}
		if err != nil || len(cands) == 0 {
			stats.FailedBatches++
			g.logger.Warn("batch failed, skipping",
				zap.Int("batch", i+1),
				zap.Int("attempts", g.maxRetries),
				zap.Error(err),
			)
			continue
		}
		all = append(all, cands...)
	}
	return all, stats, nil
}

// runBatch retries until an attempt yields at least one candidate. It
// returns an error only when the last attempt failed with one.
func (g *Generator) runBatch(ctx context.Context, profileJSON string, seeds []string, size int, stats *Stats) ([]senryu.Candidate, error) {
	violation := ""
	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			g.logger.Info("retrying generation",
				zap.Int("attempt", attempt+1),
				zap.Int("max", g.maxRetries),
				zap.String("reason", violation),
			)
		}

		prompt := buildPrompt(promptRequest{
			Profile:   profileJSON,
			Seeds:     seeds,
			Count:     size,
			Violation: violation,
		})
		stats.Calls++
		text, err := g.client.Generate(ctx, prompt)
		if err != nil {
			lastErr = fmt.Errorf("generate: %w", err)
			violation = violationParse
			continue
		}

		cands, rep, err := g.recoverer.ExtractArray(text, size)
		if err != nil {
			stats.ParseErrors++
			lastErr = err
			violation = violationParse
			g.logger.Debug("candidate extraction failed", zap.Error(err))
			continue
		}
		lastErr = nil
		stats.Dropped += len(rep.Dropped)
		if rep.Partial {
			stats.Partial++
		}
		if len(cands) > 0 {
			return cands, nil
		}
		violation = violationEmpty
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", g.maxRetries, lastErr)
	}
	return nil, nil
}
