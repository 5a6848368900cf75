package model

import "time"

type SourceCategory string

const (
	SourceArticle    SourceCategory = "article"
	SourceSocialPost SourceCategory = "social-post"
	SourceBlog       SourceCategory = "blog"
)

// Document is one unit of retrievable context text. Documents are written by
// the ingestion collaborators (scrapers, blog importers) and are read-only
// from the engine's perspective: the retriever never mutates them.
type Document struct {
	ID         int64          `json:"id"`
	Text       string         `json:"text"`
	Source     string         `json:"source"` // origin feed, e.g. "reddit", "coffee_articles"
	Category   SourceCategory `json:"category"`
	Tags       []string       `json:"tags,omitempty"` // flavor descriptors, sentiment labels
	Engagement int            `json:"engagement,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}

// Valid reports whether the document can be indexed. Corrupt rows are
// skipped by the indexer rather than failing the rebuild.
func (d Document) Valid() bool {
	return d.ID != 0 && d.Text != ""
}
