package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
)

// Provider identifiers. These name the backends a generation request can be
// routed to; the template provider lives in internal/generation but shares
// this namespace so fallback order is configured with one vocabulary.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderTemplate  = "template"
)

// Client is a uniform surface over heterogeneous text-generation backends.
type Client interface {
	// Complete generates text for the given prompt. Implementations must
	// honor ctx cancellation and deadlines.
	Complete(ctx context.Context, req Request) (*Response, error)
	// ID returns the provider identifier (one of the Provider constants).
	ID() string
	// Model returns the configured model name.
	Model() string
	// Available reports whether the backend is usable without making a full
	// generation request: key configured for cloud APIs, server reachable
	// for the local model server.
	Available(ctx context.Context) bool
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
	Stop         []string
}

type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GenerateSchema builds a strict JSON schema for structured-output requests.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Temp returns a pointer to the given temperature.
func Temp(t float64) *float64 {
	return &t
}

// EstimateCost converts a token count into USD given a per-1M-token rate.
func EstimateCost(costPer1M float64, promptTokens, completionTokens int) float64 {
	total := promptTokens + completionTokens
	return (float64(total) / 1_000_000) * costPer1M
}

// IsRetryable classifies a completion error. Rate limits and server errors
// are worth retrying on the same or another provider; context cancellation
// and client errors are not.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			slog.WarnContext(ctx, "llm rate limited, will retry",
				"status_code", apiErr.StatusCode)
			return true
		case apiErr.StatusCode >= 500:
			slog.WarnContext(ctx, "llm server error, will retry",
				"status_code", apiErr.StatusCode)
			return true
		default:
			slog.ErrorContext(ctx, "llm client error, not retryable",
				"status_code", apiErr.StatusCode,
				"error_type", apiErr.Type,
				"error_code", apiErr.Code)
			return false
		}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Network errors (no API response) are generally retryable
	slog.WarnContext(ctx, "llm network error, will retry", "error", err)
	return true
}

// HTTPError carries the status code of a failed raw-HTTP provider call
// (Gemini has no Go SDK, so its client speaks REST directly).
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm http error: status %d", e.StatusCode)
}
