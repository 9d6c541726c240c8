// Package llm exposes language model backends through a single Generate call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderCopilot = "copilot"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrEmptyResponse   = errors.New("model returned no content")
)

// Client turns a prompt into raw model text.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Client.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type Options struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	// WorkDir is the working directory handed to the copilot backend.
	WorkDir string
	Logger  *zap.Logger
}

// New builds the backend named by opts.Provider. Backends holding resources
// implement io.Closer.
func New(ctx context.Context, opts Options) (Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	logger.Debug("creating llm client",
		zap.String("provider", provider),
		zap.String("model", opts.Model),
		zap.String("base_url", opts.BaseURL),
	)
	switch provider {
	case "", ProviderOllama:
		c, err := NewOllama(opts.Model, opts.BaseURL, opts.Temperature)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		return NewOpenAI(opts.APIKey, opts.BaseURL, opts.Model, opts.Temperature), nil
	case ProviderCopilot:
		c, err := NewCopilot(ctx, opts.WorkDir, opts.Model, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
