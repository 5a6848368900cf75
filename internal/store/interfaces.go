package store

import (
	"context"
	"errors"
	"time"

	"brewcast.app/captioner/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// DocumentStore defines the contract for retrieval-corpus data access
type DocumentStore interface {
	GetByID(ctx context.Context, id int64) (*model.Document, error)
	Create(ctx context.Context, doc *model.Document) error
	ListAll(ctx context.Context) ([]model.Document, error)
	ListSince(ctx context.Context, since time.Time) ([]model.Document, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BrandStore defines the contract for brand voice profile data access
type BrandStore interface {
	GetByID(ctx context.Context, id int64) (*model.BrandVoiceProfile, error)
	GetByName(ctx context.Context, name string) (*model.BrandVoiceProfile, error)
	Create(ctx context.Context, profile *model.BrandVoiceProfile) error
	Update(ctx context.Context, profile *model.BrandVoiceProfile) error
	ListActive(ctx context.Context) ([]model.BrandVoiceProfile, error)
}

// CaptionStore defines the contract for caption artifact data access
type CaptionStore interface {
	GetByID(ctx context.Context, id int64) (*model.CaptionArtifact, error)
	Create(ctx context.Context, artifact *model.CaptionArtifact) error
	ListByBrand(ctx context.Context, brandID int64, limit int32) ([]model.CaptionArtifact, error)
	ListRecentHashes(ctx context.Context, brandID int64, limit int32) ([]string, error)
}

// KeywordStore defines the contract for trending keyword data access
type KeywordStore interface {
	Create(ctx context.Context, keyword string, source string) error
	ListRecent(ctx context.Context, limit int32) ([]model.TrendingKeyword, error)
}

// UsageStore defines the contract for provider usage accounting
type UsageStore interface {
	Record(ctx context.Context, rec *model.UsageRecord) error
	SumCostSince(ctx context.Context, since time.Time) (float64, error)
}

// HistoryStore tracks caption hashes for dedup across generation attempts.
// Backed by redis when configured, an in-process set otherwise.
type HistoryStore interface {
	Seen(ctx context.Context, brandID int64, hash string) (bool, error)
	Remember(ctx context.Context, brandID int64, hash string) error
}
