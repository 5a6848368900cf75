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

type brandStore struct {
	db *db.DB
}

func newBrandStore(db *db.DB) BrandStore {
	return &brandStore{db: db}
}

// Profiles are stored as a jsonb document beside the indexed identity
// columns. The profile shape changes with brand-onboarding iterations far
// faster than a normalized schema could keep up with.
const brandColumns = `id, name, profile, active, created_at, updated_at`

func (s *brandStore) GetByID(ctx context.Context, id int64) (*model.BrandVoiceProfile, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+brandColumns+` FROM brand_profiles WHERE id = $1`, id)
	return scanBrand(row)
}

func (s *brandStore) GetByName(ctx context.Context, name string) (*model.BrandVoiceProfile, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+brandColumns+` FROM brand_profiles WHERE lower(name) = lower($1)`, name)
	return scanBrand(row)
}

func (s *brandStore) Create(ctx context.Context, profile *model.BrandVoiceProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal brand profile: %w", err)
	}

	_, err = s.db.Pool().Exec(ctx,
		`INSERT INTO brand_profiles (id, name, profile, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.ID, profile.Name, payload, profile.Active, profile.CreatedAt, profile.UpdatedAt)
	return err
}

func (s *brandStore) Update(ctx context.Context, profile *model.BrandVoiceProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	profile.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal brand profile: %w", err)
	}

	tag, err := s.db.Pool().Exec(ctx,
		`UPDATE brand_profiles SET name = $2, profile = $3, active = $4, updated_at = $5
		 WHERE id = $1`,
		profile.ID, profile.Name, payload, profile.Active, profile.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *brandStore) ListActive(ctx context.Context) ([]model.BrandVoiceProfile, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+brandColumns+` FROM brand_profiles WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.BrandVoiceProfile
	for rows.Next() {
		profile, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

func scanBrand(row pgx.Row) (*model.BrandVoiceProfile, error) {
	var (
		profile model.BrandVoiceProfile
		payload []byte
	)
	err := row.Scan(&profile.ID, &profile.Name, &payload, &profile.Active,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Identity columns win over whatever the jsonb payload carries.
	id, name, active := profile.ID, profile.Name, profile.Active
	createdAt, updatedAt := profile.CreatedAt, profile.UpdatedAt
	if err := json.Unmarshal(payload, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal brand profile %d: %w", id, err)
	}
	profile.ID, profile.Name, profile.Active = id, name, active
	profile.CreatedAt, profile.UpdatedAt = createdAt, updatedAt

	return &profile, nil
}
