package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerationMethod labels how a caption's text was produced.
type GenerationMethod string

const (
	MethodLLM      GenerationMethod = "llm"
	MethodTemplate GenerationMethod = "template"
	MethodHybrid   GenerationMethod = "hybrid"
)

// RetrievalQuery is the input to one retrieval pass.
type RetrievalQuery struct {
	Keyword  string
	Platform Platform
	BrandID  int64
	TopK     int
}

// RankedSnippet is one scored piece of context text extracted from a
// document during retrieval.
type RankedSnippet struct {
	DocumentID int64   `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
}

// ProviderAttempt records one try against one provider during the fallback
// walk, successful or not.
type ProviderAttempt struct {
	Provider   string        `json:"provider"`
	Model      string        `json:"model,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        string        `json:"error,omitempty"`
	Retries    int           `json:"retries"`
	Successful bool          `json:"successful"`
}

// Violation records one brand or platform constraint a generated caption
// broke. Hard violations trigger regeneration; repaired ones were fixed in
// place by the constraint engine.
type Violation struct {
	Rule     string `json:"rule"`
	Detail   string `json:"detail"`
	Hard     bool   `json:"hard"`
	Repaired bool   `json:"repaired"`
}

func (v Violation) String() string {
	severity := "soft"
	if v.Hard {
		severity = "hard"
	}
	return fmt.Sprintf("%s [%s]: %s", v.Rule, severity, v.Detail)
}

// GenerationResult is the raw outcome of the provider chain before voice
// enforcement runs.
type GenerationResult struct {
	Text             string
	Provider         string
	Model            string
	Method           GenerationMethod
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	Attempts         []ProviderAttempt
}

// CaptionArtifact is the persisted output of one generation request: the
// final caption plus everything needed to audit how it was made.
type CaptionArtifact struct {
	ID          int64            `json:"id"`
	BrandID     int64            `json:"brand_id"`
	Platform    Platform         `json:"platform"`
	Keyword     string           `json:"keyword"`
	Caption     string           `json:"caption"`
	Hashtags    []string         `json:"hashtags"`
	ImagePrompt string           `json:"image_prompt"`
	VisualStyle string           `json:"visual_style"`
	Method      GenerationMethod `json:"method"`
	Provider    string           `json:"provider"`
	Model       string           `json:"model,omitempty"`

	Snippets   []RankedSnippet   `json:"snippets,omitempty"`
	Attempts   []ProviderAttempt `json:"attempts,omitempty"`
	Violations []Violation       `json:"violations,omitempty"`

	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`

	Regenerated bool      `json:"regenerated"`
	CreatedAt   time.Time `json:"created_at"`
}

// CaptionHash is the dedup key for a caption: whitespace-collapsed,
// lowercased text hashed so near-identical re-rolls collide.
func CaptionHash(caption string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(caption), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}
