package model

import "time"

// UsageRecord is one provider invocation's token and cost accounting.
// Records are written fire-and-forget after generation; losing one is
// acceptable, blocking a caption on accounting is not.
type UsageRecord struct {
	ID               int64     `json:"id"`
	BrandID          int64     `json:"brand_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

// TrendingKeyword is one harvested topic available to keyword selection.
type TrendingKeyword struct {
	ID        int64     `json:"id"`
	Keyword   string    `json:"keyword"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
