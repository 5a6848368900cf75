package dto

import (
	"time"

	"brewcast.app/captioner/internal/model"
)

type GenerateCaptionRequest struct {
	// Brand is optional: absent, the single active brand is assumed.
	BrandID   int64  `json:"brand_id,string,omitempty" binding:"omitempty"`
	BrandName string `json:"brand_name,omitempty" binding:"omitempty,max=120"`
	Platform  string `json:"platform" binding:"required,oneof=instagram facebook twitter linkedin"`
	Keyword   string `json:"keyword,omitempty" binding:"omitempty,min=2,max=120"`
	Scenario  string `json:"scenario,omitempty" binding:"omitempty,max=64"`
	Provider  string `json:"provider,omitempty" binding:"omitempty,oneof=openai anthropic gemini ollama"`
}

type CaptionResponse struct {
	ID          int64     `json:"id,string"`
	BrandID     int64     `json:"brand_id,string"`
	Platform    string    `json:"platform"`
	Keyword     string    `json:"keyword"`
	Caption     string    `json:"caption"`
	Hashtags    []string  `json:"hashtags"`
	ImagePrompt string    `json:"image_prompt"`
	VisualStyle string    `json:"visual_style"`
	Method      string    `json:"method"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model,omitempty"`
	Fallbacks   int       `json:"fallbacks"`
	CostUSD     float64   `json:"cost_usd"`
	CreatedAt   time.Time `json:"created_at"`

	// Violations surfaces constraints the caption still breaks after the
	// best-effort regeneration pass.
	Violations []model.Violation `json:"violations,omitempty"`
}

func ToCaptionResponse(a *model.CaptionArtifact) *CaptionResponse {
	fallbacks := 0
	if len(a.Attempts) > 0 {
		fallbacks = len(a.Attempts) - 1
	}
	return &CaptionResponse{
		ID:          a.ID,
		BrandID:     a.BrandID,
		Platform:    string(a.Platform),
		Keyword:     a.Keyword,
		Caption:     a.Caption,
		Hashtags:    a.Hashtags,
		ImagePrompt: a.ImagePrompt,
		VisualStyle: a.VisualStyle,
		Method:      string(a.Method),
		Provider:    a.Provider,
		Model:       a.Model,
		Fallbacks:   fallbacks,
		CostUSD:     a.CostUSD,
		CreatedAt:   a.CreatedAt,
		Violations:  a.Violations,
	}
}

type RegenerateImageRequest struct {
	CaptionID int64  `json:"caption_id,string" binding:"required"`
	Style     string `json:"style,omitempty" binding:"omitempty,oneof=artistic rustic modern_cafe minimalist"`
}

type ImagePromptResponse struct {
	CaptionID   int64  `json:"caption_id,string"`
	ImagePrompt string `json:"image_prompt"`
}
