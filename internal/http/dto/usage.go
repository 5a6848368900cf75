package dto

import "time"

type UsageSummaryResponse struct {
	Hours   int       `json:"hours"`
	Since   time.Time `json:"since"`
	CostUSD float64   `json:"cost_usd"`
}
