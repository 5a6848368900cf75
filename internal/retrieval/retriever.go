package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"brewcast.app/captioner/internal/model"
	"brewcast.app/captioner/internal/store"
)

const (
	// recencyWindow is how long a document keeps any freshness advantage.
	recencyWindow = 30 * 24 * time.Hour
	// recencyFloor is the multiplier for documents older than the window.
	recencyFloor = 0.2

	// engagementScale converts raw engagement counts into a bounded boost.
	engagementScale = 0.001
	engagementCap   = 0.5

	// inappropriatePenalty scales down documents touching topics the brand
	// has flagged. Penalized, not excluded, so a thin corpus still retrieves.
	inappropriatePenalty = 0.1

	// zeroOverlapScore stands in for the cosine score when no document
	// shares a term with the query. A non-empty corpus must still yield
	// context, so freshness takes over as the ranking signal.
	zeroOverlapScore = 0.05

	snippetMinLen     = 20
	snippetMaxLen     = 200
	snippetsPerDoc    = 2
	defaultCandidates = 50
)

// Retriever serves ranked context snippets for caption generation. The
// index is rebuilt off the request path and swapped in atomically, so
// Retrieve never blocks on ingestion.
type Retriever struct {
	docs  store.DocumentStore
	index atomic.Pointer[Index]

	mu        sync.Mutex
	lastBuilt time.Time
}

func NewRetriever(docs store.DocumentStore) *Retriever {
	r := &Retriever{docs: docs}
	r.index.Store(BuildIndex(context.Background(), nil))
	return r
}

// Rebuild loads the full corpus and replaces the live index. Safe to call
// concurrently with Retrieve.
func (r *Retriever) Rebuild(ctx context.Context) error {
	start := time.Now()
	docs, err := r.docs.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	index := BuildIndex(ctx, docs)
	r.index.Store(index)

	r.mu.Lock()
	r.lastBuilt = start
	r.mu.Unlock()

	slog.InfoContext(ctx, "retrieval index rebuilt",
		"documents", index.Size(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// RefreshIfStale rebuilds only when documents arrived after the last build,
// keeping the periodic refresh cheap on a quiet corpus.
func (r *Retriever) RefreshIfStale(ctx context.Context) error {
	r.mu.Lock()
	since := r.lastBuilt
	r.mu.Unlock()

	fresh, err := r.docs.ListSince(ctx, since)
	if err != nil {
		return fmt.Errorf("check for new documents: %w", err)
	}
	if len(fresh) == 0 {
		return nil
	}
	return r.Rebuild(ctx)
}

// SetIndex replaces the live index directly. Used by tests and by callers
// that already hold a corpus snapshot.
func (r *Retriever) SetIndex(index *Index) {
	r.index.Store(index)
}

// Retrieve ranks the corpus against the query and returns up to TopK scored
// snippets. An empty corpus returns an empty slice, never an error; the
// generation chain degrades to template output in that case.
func (r *Retriever) Retrieve(ctx context.Context, query model.RetrievalQuery, profile *model.BrandVoiceProfile) ([]model.RankedSnippet, error) {
	index := r.index.Load()
	if index.Size() == 0 {
		slog.WarnContext(ctx, "retrieval over empty corpus", "keyword", query.Keyword)
		return []model.RankedSnippet{}, nil
	}

	terms := expandQuery(query, profile)
	if len(terms) == 0 {
		return []model.RankedSnippet{}, nil
	}

	qv := index.queryVector(terms)
	now := time.Now()

	type scored struct {
		doc   model.Document
		score float64
	}

	candidates := make([]scored, 0, index.Size())
	for _, entry := range index.docs {
		base := cosine(qv, entry.vector)
		if base == 0 {
			continue
		}

		score := base * recencyBoost(now, entry.doc.IngestedAt)
		score *= 1 + engagementBoost(entry.doc.Engagement)
		if profile != nil && touchesTopics(entry.doc.Text, profile.InappropriateTopics) {
			score *= inappropriatePenalty
		}

		candidates = append(candidates, scored{doc: entry.doc, score: score})
	}

	if len(candidates) == 0 {
		// The keyword shares no vocabulary with the corpus. Rank everything
		// by freshness at a nominal positive score instead of returning
		// nothing and starving the prompt of context.
		slog.InfoContext(ctx, "no lexical overlap, falling back to freshness ranking",
			"keyword", query.Keyword)
		for _, entry := range index.docs {
			score := zeroOverlapScore * recencyBoost(now, entry.doc.IngestedAt)
			score *= 1 + engagementBoost(entry.doc.Engagement)
			if profile != nil && touchesTopics(entry.doc.Text, profile.InappropriateTopics) {
				score *= inappropriatePenalty
			}
			candidates = append(candidates, scored{doc: entry.doc, score: score})
		}
	}

	// Newer document wins ties so repeat queries stay deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].doc.IngestedAt.After(candidates[j].doc.IngestedAt)
	})

	topK := query.TopK
	if topK <= 0 {
		topK = 4
	}

	snippets := make([]model.RankedSnippet, 0, topK)
	for _, c := range candidates {
		if len(snippets) >= topK {
			break
		}
		for _, text := range extractSnippets(c.doc.Text, terms) {
			snippets = append(snippets, model.RankedSnippet{
				DocumentID: c.doc.ID,
				Text:       text,
				Score:      c.score,
				Source:     c.doc.Source,
			})
			if len(snippets) >= topK {
				break
			}
		}
	}

	slog.DebugContext(ctx, "retrieval complete",
		"keyword", query.Keyword,
		"candidates", len(candidates),
		"snippets", len(snippets))
	return snippets, nil
}

// expandQuery combines the keyword's tokens with the brand's always-use
// lexicon so retrieval surfaces text the voice layer can actually reuse.
func expandQuery(query model.RetrievalQuery, profile *model.BrandVoiceProfile) []string {
	terms := Tokenize(query.Keyword)
	if profile != nil {
		for _, term := range profile.LexiconAlways {
			terms = append(terms, Tokenize(term)...)
		}
	}
	return terms
}

// recencyBoost decays linearly from 1.0 to the floor over the recency
// window.
func recencyBoost(now, ingestedAt time.Time) float64 {
	age := now.Sub(ingestedAt)
	if age <= 0 {
		return 1.0
	}
	if age >= recencyWindow {
		return recencyFloor
	}
	frac := float64(age) / float64(recencyWindow)
	return 1.0 - frac*(1.0-recencyFloor)
}

func engagementBoost(engagement int) float64 {
	if engagement <= 0 {
		return 0
	}
	boost := float64(engagement) * engagementScale
	if boost > engagementCap {
		return engagementCap
	}
	return boost
}

func touchesTopics(text string, topics []string) bool {
	if len(topics) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}

// extractSnippets pulls the sentences most relevant to the query terms,
// bounded in length so prompts stay compact. At most two per document.
func extractSnippets(text string, terms []string) []string {
	termSet := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		termSet[t] = struct{}{}
	}

	type ranked struct {
		sentence string
		hits     int
		order    int
	}

	var candidates []ranked
	for i, sentence := range splitSentences(text) {
		trimmed := strings.TrimSpace(sentence)
		if len(trimmed) < snippetMinLen {
			continue
		}
		if len(trimmed) > snippetMaxLen {
			trimmed = truncateAtWord(trimmed, snippetMaxLen)
		}

		hits := 0
		for _, tok := range Tokenize(trimmed) {
			if _, ok := termSet[tok]; ok {
				hits++
			}
		}
		candidates = append(candidates, ranked{sentence: trimmed, hits: hits, order: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].hits != candidates[j].hits {
			return candidates[i].hits > candidates[j].hits
		}
		return candidates[i].order < candidates[j].order
	})

	var out []string
	for _, c := range candidates {
		if len(out) >= snippetsPerDoc {
			break
		}
		// Sentences with no term overlap only fill in when nothing matched.
		if c.hits == 0 && len(out) > 0 {
			break
		}
		out = append(out, c.sentence)
	}
	return out
}

func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences = append(sentences, sb.String())
			sb.Reset()
		}
	}
	if sb.Len() > 0 {
		sentences = append(sentences, sb.String())
	}
	return sentences
}

func truncateAtWord(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
