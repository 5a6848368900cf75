package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"brewcast.app/captioner/common/llm"
	"brewcast.app/captioner/internal/model"
)

var (
	// ErrEmptyCompletion is returned when a provider answers with no usable
	// text. Treated like any other provider failure by the chain.
	ErrEmptyCompletion = errors.New("provider returned empty completion")

	// ErrNoTerminalProvider means the configured chain can exhaust without
	// producing a caption. This is a configuration error, caught at startup.
	ErrNoTerminalProvider = errors.New("fallback chain has no terminal provider")
)

const providerRetries = 3

// Chain walks an ordered provider list until one produces a caption. The
// last provider must be terminal, so Generate only fails on context
// cancellation or when the total retry ceiling is spent.
type Chain struct {
	providers      []Provider
	attemptTimeout time.Duration
	retryCeiling   int
}

// NewChain validates the provider order at construction. The terminal
// provider must exist and must come last.
func NewChain(providers []Provider, attemptTimeout time.Duration, retryCeiling int) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoTerminalProvider
	}
	if !providers[len(providers)-1].Terminal() {
		return nil, ErrNoTerminalProvider
	}
	for _, p := range providers[:len(providers)-1] {
		if p.Terminal() {
			return nil, fmt.Errorf("terminal provider %q must come last in the chain", p.ID())
		}
	}

	if attemptTimeout <= 0 {
		attemptTimeout = 90 * time.Second
	}
	if retryCeiling <= 0 {
		retryCeiling = 6
	}

	return &Chain{
		providers:      providers,
		attemptTimeout: attemptTimeout,
		retryCeiling:   retryCeiling,
	}, nil
}

// Generate walks the chain in order, preferring the named provider when it
// is present. Every attempt lands in the result's attempt log, including
// failures and skips, so callers can audit why a caption fell back.
func (c *Chain) Generate(ctx context.Context, prompt Prompt, preferred string) (*model.GenerationResult, error) {
	var attempts []model.ProviderAttempt
	budget := c.retryCeiling

	for _, provider := range c.order(preferred) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !provider.Terminal() && !provider.Available(ctx) {
			attempts = append(attempts, model.ProviderAttempt{
				Provider: provider.ID(),
				Model:    provider.Model(),
				Err:      "provider unavailable",
			})
			slog.DebugContext(ctx, "provider skipped", "provider", provider.ID())
			continue
		}

		result, attempt, err := c.tryProvider(ctx, provider, prompt, &budget)
		attempts = append(attempts, attempt)
		if err != nil {
			slog.WarnContext(ctx, "provider exhausted, falling back",
				"provider", provider.ID(),
				"retries", attempt.Retries,
				"error", err)
			continue
		}

		result.Attempts = attempts
		slog.InfoContext(ctx, "caption generated",
			"provider", provider.ID(),
			"method", string(result.Method),
			"fallbacks", len(attempts)-1)
		return result, nil
	}

	// Unreachable with a validated chain unless the context died or the
	// retry ceiling ran out before the terminal provider.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("all %d providers exhausted", len(c.providers))
}

func (c *Chain) tryProvider(ctx context.Context, provider Provider, prompt Prompt, budget *int) (*model.GenerationResult, model.ProviderAttempt, error) {
	attempt := model.ProviderAttempt{
		Provider: provider.ID(),
		Model:    provider.Model(),
	}

	retries := providerRetries
	if provider.Terminal() {
		retries = 1
	}

	start := time.Now()
	var result *model.GenerationResult
	var err error

	for i := 0; i < retries; i++ {
		if !provider.Terminal() {
			if *budget <= 0 {
				err = fmt.Errorf("retry ceiling reached")
				break
			}
			*budget--
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		result, err = provider.Generate(attemptCtx, prompt)
		cancel()

		if err == nil {
			break
		}
		attempt.Retries = i + 1
		if !llm.IsRetryable(ctx, err) {
			break
		}
		if i < retries-1 {
			time.Sleep(time.Duration(1<<i) * time.Second)
		}
	}

	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Err = err.Error()
		return nil, attempt, err
	}

	attempt.Successful = true
	return result, attempt, nil
}

// order returns the providers with the preferred one moved to the front.
// The terminal provider never moves; it stays last no matter what the
// brand prefers.
func (c *Chain) order(preferred string) []Provider {
	if preferred == "" {
		return c.providers
	}

	ordered := make([]Provider, 0, len(c.providers))
	for _, p := range c.providers {
		if p.ID() == preferred && !p.Terminal() {
			ordered = append(ordered, p)
		}
	}
	if len(ordered) == 0 {
		return c.providers
	}
	for _, p := range c.providers {
		if p.ID() != preferred || p.Terminal() {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
