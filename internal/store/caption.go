package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brewcast.app/captioner/core/db"
	"brewcast.app/captioner/internal/model"
	"github.com/jackc/pgx/v5"
)

type captionStore struct {
	db *db.DB
}

func newCaptionStore(db *db.DB) CaptionStore {
	return &captionStore{db: db}
}

const captionColumns = `id, brand_id, platform, keyword, caption, caption_hash,
	hashtags, image_prompt, visual_style, method, provider, model,
	snippets, attempts, violations, prompt_tokens, completion_tokens, cost_usd,
	regenerated, created_at`

func (s *captionStore) GetByID(ctx context.Context, id int64) (*model.CaptionArtifact, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+captionColumns+` FROM captions WHERE id = $1`, id)
	return scanCaption(row)
}

func (s *captionStore) Create(ctx context.Context, artifact *model.CaptionArtifact) error {
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	snippets, err := json.Marshal(artifact.Snippets)
	if err != nil {
		return fmt.Errorf("marshal snippets: %w", err)
	}
	attempts, err := json.Marshal(artifact.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	violations, err := json.Marshal(artifact.Violations)
	if err != nil {
		return fmt.Errorf("marshal violations: %w", err)
	}

	_, err = s.db.Pool().Exec(ctx,
		`INSERT INTO captions (id, brand_id, platform, keyword, caption, caption_hash,
			hashtags, image_prompt, visual_style, method, provider, model,
			snippets, attempts, violations, prompt_tokens, completion_tokens, cost_usd,
			regenerated, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		artifact.ID, artifact.BrandID, artifact.Platform, artifact.Keyword,
		artifact.Caption, model.CaptionHash(artifact.Caption),
		artifact.Hashtags, artifact.ImagePrompt, artifact.VisualStyle,
		artifact.Method, artifact.Provider, artifact.Model,
		snippets, attempts, violations, artifact.PromptTokens, artifact.CompletionTokens,
		artifact.CostUSD, artifact.Regenerated, artifact.CreatedAt)
	return err
}

func (s *captionStore) ListByBrand(ctx context.Context, brandID int64, limit int32) ([]model.CaptionArtifact, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+captionColumns+` FROM captions
		 WHERE brand_id = $1 ORDER BY created_at DESC LIMIT $2`,
		brandID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []model.CaptionArtifact
	for rows.Next() {
		artifact, err := scanCaption(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, rows.Err()
}

func (s *captionStore) ListRecentHashes(ctx context.Context, brandID int64, limit int32) ([]string, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT caption_hash FROM captions
		 WHERE brand_id = $1 ORDER BY created_at DESC LIMIT $2`,
		brandID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, rows.Err()
}

func scanCaption(row pgx.Row) (*model.CaptionArtifact, error) {
	var (
		artifact   model.CaptionArtifact
		hash       string
		snippets   []byte
		attempts   []byte
		violations []byte
	)
	err := row.Scan(&artifact.ID, &artifact.BrandID, &artifact.Platform,
		&artifact.Keyword, &artifact.Caption, &hash,
		&artifact.Hashtags, &artifact.ImagePrompt, &artifact.VisualStyle,
		&artifact.Method, &artifact.Provider, &artifact.Model,
		&snippets, &attempts, &violations, &artifact.PromptTokens, &artifact.CompletionTokens,
		&artifact.CostUSD, &artifact.Regenerated, &artifact.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(snippets) > 0 {
		if err := json.Unmarshal(snippets, &artifact.Snippets); err != nil {
			return nil, fmt.Errorf("unmarshal snippets for caption %d: %w", artifact.ID, err)
		}
	}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &artifact.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshal attempts for caption %d: %w", artifact.ID, err)
		}
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &artifact.Violations); err != nil {
			return nil, fmt.Errorf("unmarshal violations for caption %d: %w", artifact.ID, err)
		}
	}

	return &artifact, nil
}
