package generation

import (
	"context"
	"strings"

	"brewcast.app/captioner/common/llm"
	"brewcast.app/captioner/internal/model"
)

// llmProvider adapts an llm.Client to the Provider interface and attaches
// token and cost accounting to each result.
type llmProvider struct {
	client    llm.Client
	costPer1M float64
}

// NewLLMProvider wraps an LLM client as a caption provider.
func NewLLMProvider(client llm.Client, costPer1M float64) Provider {
	return &llmProvider{client: client, costPer1M: costPer1M}
}

func (p *llmProvider) ID() string {
	return p.client.ID()
}

func (p *llmProvider) Model() string {
	return p.client.Model()
}

func (p *llmProvider) Available(ctx context.Context) bool {
	return p.client.Available(ctx)
}

func (p *llmProvider) Terminal() bool {
	return false
}

func (p *llmProvider) Generate(ctx context.Context, prompt Prompt) (*model.GenerationResult, error) {
	maxTokens := prompt.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	resp, err := p.client.Complete(ctx, llm.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		MaxTokens:    maxTokens,
		Temperature:  llm.Temp(0.8),
	})
	if err != nil {
		return nil, err
	}

	text := cleanCaptionText(resp.Text)
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	return &model.GenerationResult{
		Text:             text,
		Provider:         p.client.ID(),
		Model:            p.client.Model(),
		Method:           model.MethodLLM,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		CostUSD:          llm.EstimateCost(p.costPer1M, resp.PromptTokens, resp.CompletionTokens),
	}, nil
}

// cleanCaptionText strips the framing some models wrap around the caption:
// surrounding quotes and "Caption:" style prefixes.
func cleanCaptionText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"“”`)

	for _, prefix := range []string{"Caption:", "caption:"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	return strings.TrimSpace(text)
}
