package dto

import (
	"time"

	"brewcast.app/captioner/internal/model"
)

type BrandSummary struct {
	ID                int64     `json:"id,string"`
	Name              string    `json:"name"`
	Active            bool      `json:"active"`
	PreferredProvider string    `json:"preferred_provider,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func ToBrandSummary(p *model.BrandVoiceProfile) BrandSummary {
	return BrandSummary{
		ID:                p.ID,
		Name:              p.Name,
		Active:            p.Active,
		PreferredProvider: p.PreferredProvider,
		UpdatedAt:         p.UpdatedAt,
	}
}
