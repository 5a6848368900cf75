package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

type ollamaClient struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
}

// NewOllamaClient creates a Client backed by a local Ollama server.
// The host is typically http://localhost:11434.
func NewOllamaClient(host, model string, timeout time.Duration) (Client, error) {
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host: %w", err)
	}

	if model == "" {
		model = "phi3:mini"
	}
	if timeout == 0 {
		timeout = 90 * time.Second
	}

	return &ollamaClient{
		client:  ollama.NewClient(base, http.DefaultClient),
		model:   model,
		timeout: timeout,
	}, nil
}

func (c *ollamaClient) ID() string {
	return ProviderOllama
}

func (c *ollamaClient) Model() string {
	return c.model
}

// Available probes the local server with a model listing, the cheapest call
// the API offers. A short deadline keeps an absent server from stalling the
// fallback chain.
func (c *ollamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.client.List(ctx)
	if err != nil {
		slog.DebugContext(ctx, "ollama not reachable", "error", err)
		return false
	}

	for _, m := range resp.Models {
		if m.Name == c.model || strings.Contains(m.Name, c.model) {
			return true
		}
	}

	slog.WarnContext(ctx, "ollama reachable but model missing",
		"model", c.model, "available", len(resp.Models))
	// Any pulled model beats falling through to a cloud provider the operator
	// may not have configured.
	return len(resp.Models) > 0
}

func (c *ollamaClient) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := req.UserPrompt
	if req.SystemPrompt != "" {
		prompt = req.SystemPrompt + "\n\n" + req.UserPrompt
	}

	options := map[string]any{
		"top_p": 0.9,
	}
	if req.Temperature != nil {
		options["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(req.Stop) > 0 {
		options["stop"] = req.Stop
	}

	stream := false
	var sb strings.Builder
	var evalCount, promptEvalCount int

	start := time.Now()
	err := c.client.Generate(ctx, &ollama.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options,
	}, func(res ollama.GenerateResponse) error {
		sb.WriteString(res.Response)
		if res.Done {
			evalCount = res.EvalCount
			promptEvalCount = res.PromptEvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}

	slog.DebugContext(ctx, "llm completion finished",
		"provider", ProviderOllama,
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", promptEvalCount,
		"completion_tokens", evalCount)

	return &Response{
		Text:             strings.TrimSpace(sb.String()),
		PromptTokens:     promptEvalCount,
		CompletionTokens: evalCount,
	}, nil
}
