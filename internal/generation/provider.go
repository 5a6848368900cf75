package generation

import (
	"context"

	"brewcast.app/captioner/internal/model"
)

// Prompt is the fully-steered input handed to a provider. Providers never
// see the profile directly; the voice layer has already rendered it.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
	Keyword   string
	Platform  model.Platform
	Snippets  []model.RankedSnippet
}

// Provider produces caption text from a steered prompt. Implementations
// wrap one LLM backend or the deterministic template generator.
type Provider interface {
	ID() string
	Model() string
	Available(ctx context.Context) bool
	Generate(ctx context.Context, prompt Prompt) (*model.GenerationResult, error)
	// Terminal reports whether the provider can never fail for external
	// reasons. The chain requires exactly one terminal provider at the end.
	Terminal() bool
}
