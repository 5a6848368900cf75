package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"brewcast.app/captioner/common/id"
	"brewcast.app/captioner/common/logger"
	"brewcast.app/captioner/internal/generation"
	"brewcast.app/captioner/internal/model"
	"brewcast.app/captioner/internal/store"
	"brewcast.app/captioner/internal/voice"
)

// InvalidRequestError marks caller mistakes: unknown brands, bad platforms,
// malformed keywords. The HTTP layer maps these to 400s.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return e.Reason
}

// Retriever is the slice of the retrieval engine the pipeline needs.
type Retriever interface {
	Retrieve(ctx context.Context, query model.RetrievalQuery, profile *model.BrandVoiceProfile) ([]model.RankedSnippet, error)
}

// Generator is the slice of the provider chain the pipeline needs.
type Generator interface {
	Generate(ctx context.Context, prompt generation.Prompt, preferred string) (*model.GenerationResult, error)
}

// KeywordSource supplies a trending keyword when the request names none.
type KeywordSource interface {
	Pick(ctx context.Context) (string, error)
}

// Config tunes pipeline behavior. Zero values take the documented defaults.
type Config struct {
	TopK          int
	DedupAttempts int
	MaxTokens     int
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 4
	}
	if c.DedupAttempts <= 0 {
		c.DedupAttempts = 5
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 300
	}
	return c
}

// Pipeline runs the full caption generation flow: brand resolution,
// retrieval, steered generation, constraint enforcement, assembly, and
// persistence.
type Pipeline struct {
	brands    store.BrandStore
	captions  store.CaptionStore
	usage     store.UsageStore
	history   store.HistoryStore
	retriever Retriever
	generator Generator
	keywords  KeywordSource
	enforcer  *voice.Enforcer
	cfg       Config
}

func New(
	brands store.BrandStore,
	captions store.CaptionStore,
	usage store.UsageStore,
	history store.HistoryStore,
	retriever Retriever,
	generator Generator,
	keywords KeywordSource,
	enforcer *voice.Enforcer,
	cfg Config,
) *Pipeline {
	return &Pipeline{
		brands:    brands,
		captions:  captions,
		usage:     usage,
		history:   history,
		retriever: retriever,
		generator: generator,
		keywords:  keywords,
		enforcer:  enforcer,
		cfg:       cfg.withDefaults(),
	}
}

// GenerateRequest is one caption generation order. Brand resolution tries
// BrandID, then BrandName, then falls back to the single active brand.
type GenerateRequest struct {
	BrandID   int64
	BrandName string
	Platform  string
	// Keyword overrides trending selection when set.
	Keyword  string
	Scenario string
	// Provider overrides the brand's preferred provider for this request.
	Provider string
}

// Generate produces and persists one caption artifact.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*model.CaptionArtifact, error) {
	profile, err := p.resolveBrand(ctx, req)
	if err != nil {
		return nil, err
	}
	if !profile.Active {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("brand %d is inactive", profile.ID)}
	}

	preferred := req.Provider
	if preferred == "" {
		preferred = profile.PreferredProvider
	}

	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		return nil, &InvalidRequestError{Reason: err.Error()}
	}

	keyword := req.Keyword
	if keyword == "" {
		keyword, err = p.keywords.Pick(ctx)
		if err != nil {
			return nil, fmt.Errorf("pick trending keyword: %w", err)
		}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		BrandID:  logger.Ptr(profile.ID),
		Platform: logger.Ptr(string(platform)),
		Keyword:  logger.Ptr(keyword),
	})

	snippets, err := p.retriever.Retrieve(ctx, model.RetrievalQuery{
		Keyword:  keyword,
		Platform: platform,
		BrandID:  profile.ID,
		TopK:     p.cfg.TopK,
	}, profile)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	caption, result, violations, err := p.generateCaption(ctx, profile, platform, keyword, req.Scenario, preferred, snippets)
	if err != nil {
		return nil, err
	}

	visualStyle := voice.DetectVisualStyle(caption, keyword)
	imagePrompt, imgResult := p.buildImagePrompt(ctx, profile, keyword, visualStyle, preferred, snippets, result.Method)

	promptTokens := result.PromptTokens
	completionTokens := result.CompletionTokens
	cost := result.CostUSD
	if imgResult != nil {
		promptTokens += imgResult.PromptTokens
		completionTokens += imgResult.CompletionTokens
		cost += imgResult.CostUSD
	}

	artifact := &model.CaptionArtifact{
		ID:               id.New(),
		BrandID:          profile.ID,
		Platform:         platform,
		Keyword:          keyword,
		Caption:          caption,
		Hashtags:         BuildHashtags(profile, keyword, platform),
		ImagePrompt:      imagePrompt,
		VisualStyle:      visualStyle,
		Method:           result.Method,
		Provider:         result.Provider,
		Model:            result.Model,
		Snippets:         snippets,
		Attempts:         result.Attempts,
		Violations:       violations,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostUSD:          cost,
		CreatedAt:        time.Now().UTC(),
	}

	if err := p.captions.Create(ctx, artifact); err != nil {
		return nil, fmt.Errorf("persist caption: %w", err)
	}
	if err := p.history.Remember(ctx, profile.ID, model.CaptionHash(caption)); err != nil {
		slog.WarnContext(ctx, "failed to record caption history", "error", err)
	}

	p.recordUsage(ctx, artifact)

	return artifact, nil
}

// resolveBrand picks the profile for a request: explicit ID first, then
// name, then the single active brand when the request names neither.
func (p *Pipeline) resolveBrand(ctx context.Context, req GenerateRequest) (*model.BrandVoiceProfile, error) {
	switch {
	case req.BrandID != 0:
		profile, err := p.brands.GetByID(ctx, req.BrandID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &InvalidRequestError{Reason: fmt.Sprintf("brand %d not found", req.BrandID)}
			}
			return nil, fmt.Errorf("load brand: %w", err)
		}
		return profile, nil
	case req.BrandName != "":
		profile, err := p.brands.GetByName(ctx, req.BrandName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &InvalidRequestError{Reason: fmt.Sprintf("brand %q not found", req.BrandName)}
			}
			return nil, fmt.Errorf("load brand: %w", err)
		}
		return profile, nil
	default:
		active, err := p.brands.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active brands: %w", err)
		}
		switch len(active) {
		case 1:
			return &active[0], nil
		case 0:
			return nil, &InvalidRequestError{Reason: "no active brands configured"}
		default:
			return nil, &InvalidRequestError{Reason: fmt.Sprintf("brand is required when %d brands are active", len(active))}
		}
	}
}

// generateCaption runs the provider chain, enforces the brand voice, and
// retries on hard violations and duplicate output. Regeneration reuses the
// same snippets so retrieval stays consistent within one request. The
// returned violations are whatever survived on the accepted caption.
func (p *Pipeline) generateCaption(
	ctx context.Context,
	profile *model.BrandVoiceProfile,
	platform model.Platform,
	keyword, scenario, preferred string,
	snippets []model.RankedSnippet,
) (string, *model.GenerationResult, []model.Violation, error) {
	steering := voice.SteeringInput{
		Profile:  profile,
		Platform: platform,
		Keyword:  keyword,
		Scenario: scenario,
		Snippets: snippets,
	}

	prompt := generation.Prompt{
		System:    voice.SystemPrompt(steering),
		User:      voice.UserPrompt(steering),
		MaxTokens: p.cfg.MaxTokens,
		Keyword:   keyword,
		Platform:  platform,
		Snippets:  snippets,
	}

	var caption string
	var result *model.GenerationResult
	var violations []model.Violation

	for attempt := 0; attempt < p.cfg.DedupAttempts; attempt++ {
		retryPrompt := prompt
		if attempt > 0 {
			retryPrompt.User = prompt.User +
				fmt.Sprintf("\n\nTake a different angle than your previous attempts (attempt %d).", attempt+1)
		}

		var err error
		result, err = p.generator.Generate(ctx, retryPrompt, preferred)
		if err != nil {
			return "", nil, nil, fmt.Errorf("generate caption: %w", err)
		}

		enforced := p.enforcer.Enforce(result.Text, profile, platform)
		for _, v := range enforced.Violations {
			slog.DebugContext(ctx, "voice violation", "violation", v.String())
		}

		if enforced.NeedsRegeneration() && result.Method == model.MethodLLM {
			// One in-place regeneration with the same snippets before the
			// dedup loop moves on.
			regenPrompt := retryPrompt
			regenPrompt.User = retryPrompt.User + "\n\nYour previous draft broke brand rules:\n" +
				violationSummary(enforced.Violations) + "\nWrite a fresh caption that respects them."

			regen, err := p.generator.Generate(ctx, regenPrompt, preferred)
			if err == nil {
				reEnforced := p.enforcer.Enforce(regen.Text, profile, platform)
				if !reEnforced.NeedsRegeneration() {
					result = regen
					enforced = reEnforced
				}
			}
		}

		if enforced.NeedsRegeneration() {
			// Best effort: the repaired caption ships with its violations
			// attached rather than failing the request.
			slog.WarnContext(ctx, "caption kept hard violations after regeneration")
		}

		caption = enforced.Caption
		violations = enforced.Violations

		seen, err := p.history.Seen(ctx, profile.ID, model.CaptionHash(caption))
		if err != nil {
			slog.WarnContext(ctx, "caption history lookup failed", "error", err)
			return caption, result, violations, nil
		}
		if !seen {
			return caption, result, violations, nil
		}

		// Template output is deterministic per keyword, so a duplicate will
		// repeat forever. Accept it rather than spin.
		if result.Method != model.MethodLLM {
			slog.InfoContext(ctx, "accepting duplicate template caption")
			return caption, result, violations, nil
		}

		slog.InfoContext(ctx, "duplicate caption, regenerating", "attempt", attempt+1)
	}

	if caption == "" {
		return "", nil, nil, fmt.Errorf("caption generation exhausted %d attempts", p.cfg.DedupAttempts)
	}

	// Out of dedup attempts; a repeat beats no caption at all.
	slog.WarnContext(ctx, "dedup attempts exhausted, accepting duplicate")
	return caption, result, violations, nil
}

// imagePromptMaxTokens bounds the photography brief; a prompt longer than a
// paragraph adds nothing for image models.
const imagePromptMaxTokens = 150

// buildImagePrompt writes the companion image prompt through the provider
// chain, with the style tables as the deterministic fallback. When the
// caption itself came from the template provider no model is reachable, so
// the chain is skipped outright.
func (p *Pipeline) buildImagePrompt(
	ctx context.Context,
	profile *model.BrandVoiceProfile,
	keyword, style, preferred string,
	snippets []model.RankedSnippet,
	captionMethod model.GenerationMethod,
) (string, *model.GenerationResult) {
	if captionMethod != model.MethodLLM {
		return voice.ImagePrompt(profile, keyword, style), nil
	}

	result, err := p.generator.Generate(ctx, generation.Prompt{
		System:    voice.ImagePromptSystem(profile),
		User:      voice.ImagePromptUser(keyword, style, snippets),
		MaxTokens: imagePromptMaxTokens,
		Keyword:   keyword,
	}, preferred)
	if err != nil || result.Method != model.MethodLLM || strings.TrimSpace(result.Text) == "" {
		slog.WarnContext(ctx, "image prompt generation fell back to style templates", "error", err)
		return voice.ImagePrompt(profile, keyword, style), nil
	}

	return strings.TrimSpace(result.Text), result
}

// RegenerateImage produces a fresh image prompt for an existing caption
// without re-running retrieval or caption generation. The stored snippets
// keep the new prompt consistent with the caption they produced.
func (p *Pipeline) RegenerateImage(ctx context.Context, captionID int64, styleOverride string) (string, error) {
	artifact, err := p.captions.GetByID(ctx, captionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", &InvalidRequestError{Reason: fmt.Sprintf("caption %d not found", captionID)}
		}
		return "", fmt.Errorf("load caption: %w", err)
	}

	profile, err := p.brands.GetByID(ctx, artifact.BrandID)
	if err != nil {
		return "", fmt.Errorf("load brand: %w", err)
	}

	style := styleOverride
	if style == "" {
		style = artifact.VisualStyle
	}

	prompt, _ := p.buildImagePrompt(ctx, profile, artifact.Keyword, style,
		profile.PreferredProvider, artifact.Snippets, model.MethodLLM)
	return prompt, nil
}

// recordUsage writes provider accounting off the request path. A lost
// record is an acceptable trade against blocking the response.
func (p *Pipeline) recordUsage(ctx context.Context, artifact *model.CaptionArtifact) {
	if artifact.Method != model.MethodLLM {
		return
	}

	fields := logger.GetLogFields(ctx)
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		bgCtx = logger.WithLogFields(bgCtx, fields)

		err := p.usage.Record(bgCtx, &model.UsageRecord{
			ID:               id.New(),
			BrandID:          artifact.BrandID,
			Provider:         artifact.Provider,
			Model:            artifact.Model,
			PromptTokens:     artifact.PromptTokens,
			CompletionTokens: artifact.CompletionTokens,
			CostUSD:          artifact.CostUSD,
		})
		if err != nil {
			slog.WarnContext(bgCtx, "failed to record provider usage", "error", err)
		}
	}()
}

func violationSummary(violations []voice.Violation) string {
	var sb strings.Builder
	for _, v := range violations {
		if !v.Hard || v.Repaired {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(v.Detail)
		sb.WriteString("\n")
	}
	return sb.String()
}
