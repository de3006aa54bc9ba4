package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/JaimeStill/concierge/pkg/llm"
)

var errEmptyGeneration = errors.New("generated response is empty")

// Prompt is one generation request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Generator produces free-text responses.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

type llmGenerator struct {
	client llm.Client
}

// NewGenerator returns a Generator backed by a chat completion client.
func NewGenerator(client llm.Client) Generator {
	return &llmGenerator{client: client}
}

func (g *llmGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	resp, err := g.client.Complete(ctx, llm.Request{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		MaxTokens:    p.MaxTokens,
		Temperature:  llm.Temp(p.Temperature),
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", errEmptyGeneration
	}
	return text, nil
}
