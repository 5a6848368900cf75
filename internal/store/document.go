package store

import (
	"context"
	"errors"
	"time"

	"brewcast.app/captioner/core/db"
	"brewcast.app/captioner/internal/model"
	"github.com/jackc/pgx/v5"
)

type documentStore struct {
	db *db.DB
}

func newDocumentStore(db *db.DB) DocumentStore {
	return &documentStore{db: db}
}

const documentColumns = `id, text, source, category, tags, engagement, ingested_at`

func (s *documentStore) GetByID(ctx context.Context, id int64) (*model.Document, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentStore) Create(ctx context.Context, doc *model.Document) error {
	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}
	_, err := s.db.Pool().Exec(ctx,
		`INSERT INTO documents (id, text, source, category, tags, engagement, ingested_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.Text, doc.Source, doc.Category, doc.Tags, doc.Engagement, doc.IngestedAt)
	return err
}

func (s *documentStore) ListAll(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY ingested_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func (s *documentStore) ListSince(ctx context.Context, since time.Time) ([]model.Document, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE ingested_at >= $1 ORDER BY ingested_at DESC`,
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func (s *documentStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Pool().Exec(ctx,
		`DELETE FROM documents WHERE ingested_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var doc model.Document
	err := row.Scan(&doc.ID, &doc.Text, &doc.Source, &doc.Category,
		&doc.Tags, &doc.Engagement, &doc.IngestedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func collectDocuments(rows pgx.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}
