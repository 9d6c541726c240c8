package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const DefaultOllamaModel = "qwen2.5:7b-instruct"

// Ollama talks to a local Ollama server through langchaingo.
type Ollama struct {
	llm         *ollama.LLM
	model       string
	temperature float64
}

func NewOllama(model, serverURL string, temperature float64) (*Ollama, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL = strings.TrimSpace(serverURL); serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &Ollama{llm: l, model: model, temperature: temperature}, nil
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, llms.WithTemperature(o.temperature))
	if err != nil {
		return "", ollamaError(o.model, err)
	}
	return out, nil
}

// ollamaError rewrites missing model errors into something actionable.
func ollamaError(model string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "model") && strings.Contains(msg, "not found") {
		return fmt.Errorf("model %q not found, run 'ollama pull %s': %w", model, model, err)
	}
	return fmt.Errorf("ollama generate: %w", err)
}
