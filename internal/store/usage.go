package store

import (
	"context"
	"time"

	"brewcast.app/captioner/core/db"
	"brewcast.app/captioner/internal/model"
)

type usageStore struct {
	db *db.DB
}

func newUsageStore(db *db.DB) UsageStore {
	return &usageStore{db: db}
}

func (s *usageStore) Record(ctx context.Context, rec *model.UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Pool().Exec(ctx,
		`INSERT INTO provider_usage (id, brand_id, provider, model,
			prompt_tokens, completion_tokens, cost_usd, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.BrandID, rec.Provider, rec.Model,
		rec.PromptTokens, rec.CompletionTokens, rec.CostUSD, rec.CreatedAt)
	return err
}

func (s *usageStore) SumCostSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.db.Pool().QueryRow(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM provider_usage WHERE created_at >= $1`,
		since).Scan(&total)
	return total, err
}
