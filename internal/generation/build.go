package generation

import (
	"fmt"
	"log/slog"

	"brewcast.app/captioner/common/llm"
	"brewcast.app/captioner/core/config"
)

// Blended USD cost per million tokens, used for usage accounting. Local and
// template generation cost nothing.
var costPer1M = map[string]float64{
	llm.ProviderOpenAI:    0.375,
	llm.ProviderAnthropic: 2.40,
	llm.ProviderGemini:    0.25,
}

// NewChainFromConfig builds the provider chain from configuration: the
// default provider first, then the configured fallback order, then the
// template provider as the terminal fallback. Providers without credentials
// are wired anyway; the chain skips them via Available at request time.
func NewChainFromConfig(cfg config.ProvidersConfig, templateSeed int64) (*Chain, error) {
	seen := make(map[string]struct{})
	order := make([]string, 0, len(cfg.FallbackOrder)+1)

	for _, name := range append([]string{cfg.DefaultProvider}, cfg.FallbackOrder...) {
		if name == "" || name == llm.ProviderTemplate {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}

	providers := make([]Provider, 0, len(order)+1)
	for _, name := range order {
		provider, err := buildProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	providers = append(providers, NewTemplateProvider(templateSeed))

	slog.Debug("provider chain assembled", "order", order)
	return NewChain(providers, cfg.AttemptTimeout, cfg.RetryCeiling)
}

func buildProvider(name string, cfg config.ProvidersConfig) (Provider, error) {
	switch name {
	case llm.ProviderOpenAI:
		client := llm.NewOpenAIClient(llm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
		return NewLLMProvider(client, costPer1M[name]), nil
	case llm.ProviderAnthropic:
		client := llm.NewAnthropicClient(llm.Config{
			APIKey:  cfg.Anthropic.APIKey,
			BaseURL: cfg.Anthropic.BaseURL,
			Model:   cfg.Anthropic.Model,
		})
		return NewLLMProvider(client, costPer1M[name]), nil
	case llm.ProviderGemini:
		client := llm.NewGeminiClient(llm.Config{
			APIKey:  cfg.Gemini.APIKey,
			BaseURL: cfg.Gemini.BaseURL,
			Model:   cfg.Gemini.Model,
		})
		return NewLLMProvider(client, costPer1M[name]), nil
	case llm.ProviderOllama:
		client, err := llm.NewOllamaClient(cfg.Ollama.Host, cfg.Ollama.Model, cfg.Ollama.Timeout)
		if err != nil {
			return nil, fmt.Errorf("build ollama provider: %w", err)
		}
		return NewLLMProvider(client, 0), nil
	default:
		return nil, fmt.Errorf("unknown provider in fallback order: %q", name)
	}
}
