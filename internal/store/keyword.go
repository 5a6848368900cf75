package store

import (
	"context"

	"brewcast.app/captioner/core/db"
	"brewcast.app/captioner/internal/model"
)

type keywordStore struct {
	db *db.DB
}

func newKeywordStore(db *db.DB) KeywordStore {
	return &keywordStore{db: db}
}

func (s *keywordStore) Create(ctx context.Context, keyword string, source string) error {
	_, err := s.db.Pool().Exec(ctx,
		`INSERT INTO trending_keywords (keyword, source)
		 VALUES ($1, $2)
		 ON CONFLICT (keyword) DO UPDATE SET source = EXCLUDED.source, created_at = now()`,
		keyword, source)
	return err
}

func (s *keywordStore) ListRecent(ctx context.Context, limit int32) ([]model.TrendingKeyword, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id, keyword, source, created_at FROM trending_keywords
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keywords []model.TrendingKeyword
	for rows.Next() {
		var kw model.TrendingKeyword
		if err := rows.Scan(&kw.ID, &kw.Keyword, &kw.Source, &kw.CreatedAt); err != nil {
			return nil, err
		}
		keywords = append(keywords, kw)
	}
	return keywords, rows.Err()
}
