package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	sdk "github.com/github/copilot-sdk/go"
	"go.uber.org/zap"
)

const (
	defaultCopilotModel    = "gpt-5.3-codex"
	defaultReasoningEffort = "medium"
)

// Copilot sends each prompt through a fresh GitHub Copilot session so
// generations do not share conversation history.
type Copilot struct {
	client *sdk.Client
	model  string
	cwd    string
	logger *zap.Logger
}

func NewCopilot(ctx context.Context, cwd, model string, logger *zap.Logger) (*Copilot, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		model = strings.TrimSpace(os.Getenv("COPILOT_MODEL"))
	}
	if model == "" {
		model = defaultCopilotModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := sdk.NewClient(&sdk.ClientOptions{Cwd: cwd})
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("start copilot sdk client: %w", err)
	}
	return &Copilot{client: client, model: model, cwd: cwd, logger: logger}, nil
}

func (c *Copilot) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Stop()
}

func (c *Copilot) Generate(ctx context.Context, prompt string) (string, error) {
	session, err := c.client.CreateSession(ctx, &sdk.SessionConfig{
		Model:            c.model,
		ReasoningEffort:  defaultReasoningEffort,
		WorkingDirectory: c.cwd,
		InfiniteSessions: &sdk.InfiniteSessionConfig{Enabled: sdk.Bool(false)},
	})
	if err != nil {
		return "", fmt.Errorf("create copilot session: %w", err)
	}
	defer session.Destroy()

	resp, err := session.SendAndWait(ctx, sdk.MessageOptions{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("copilot send: %w", err)
	}
	text := ""
	if resp != nil && resp.Data.Content != nil {
		text = strings.TrimSpace(*resp.Data.Content)
	}
	c.logger.Debug("copilot response", zap.String("model", c.model), zap.Int("chars", len(text)))
	return text, nil
}
