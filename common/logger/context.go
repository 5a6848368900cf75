package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Business context (brand_id, platform, keyword) flows through
// context enrichment so individual log statements never repeat it.
type LogFields struct {
	RequestID *int64  // Generation request ID
	BrandID   *int64  // Brand profile ID
	Platform  *string // Target platform (instagram, facebook, twitter, linkedin)
	Keyword   *string // Trending keyword driving this generation
	Provider  *string // Generation provider currently in use
	Component string  // Component name (e.g., "captioner.pipeline", "captioner.retrieval")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.RequestID != nil {
		result.RequestID = next.RequestID
	}
	if next.BrandID != nil {
		result.BrandID = next.BrandID
	}
	if next.Platform != nil {
		result.Platform = next.Platform
	}
	if next.Keyword != nil {
		result.Keyword = next.Keyword
	}
	if next.Provider != nil {
		result.Provider = next.Provider
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{BrandID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long prompts or captions.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
