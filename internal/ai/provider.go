package ai

import (
	"context"
	"fmt"

	"github.com/nao1215/socaudit/internal/model"
)

// Provider analyzes a prompt with an LLM.
type Provider interface {
	// Analyze sends prompt and returns the model's text output.
	Analyze(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name ("openai" or "google").
	Name() string

	// Model returns the model used.
	Model() string

	// Close releases client resources.
	Close() error
}

// Analyze builds the prompt for snapshot and sends it to p.
func Analyze(ctx context.Context, p Provider, snapshot *model.Snapshot) (string, error) {
	prompt, err := BuildPrompt(snapshot)
	if err != nil {
		return "", err
	}

	text, err := p.Analyze(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s analysis failed: %w", p.Name(), err)
	}
	return text, nil
}
