package trending

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"brewcast.app/captioner/internal/store"
)

// Selection policies for picking a keyword out of the harvested pool.
const (
	PolicyUniform = "uniform"
	PolicyRecency = "recency"
)

// queryPrefixes are search-phrase framings that leak in from harvested
// autocomplete data. They read badly in captions and get stripped.
var queryPrefixes = []string{
	"what is ",
	"what are ",
	"how to make ",
	"how to ",
	"best ",
	"where to buy ",
}

// fallbackKeywords keep generation alive when the keyword store is empty,
// for example on a fresh deployment before the first harvest.
var fallbackKeywords = []string{
	"cold brew coffee",
	"morning espresso ritual",
	"oat milk latte",
	"single origin beans",
	"pour over brewing",
	"seasonal roast",
}

// Source selects trending keywords for caption generation.
type Source struct {
	keywords store.KeywordStore
	policy   string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSource creates a keyword source. A zero seed randomizes selection; a
// fixed seed makes picks reproducible.
func NewSource(keywords store.KeywordStore, policy string, seed int64) (*Source, error) {
	switch policy {
	case PolicyUniform, PolicyRecency:
	default:
		return nil, fmt.Errorf("unknown trending policy: %q", policy)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Source{
		keywords: keywords,
		policy:   policy,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Pick selects one keyword. The recency policy weights newer keywords
// linearly by list position; uniform treats the pool flat. An empty pool
// falls back to the built-in evergreen list.
func (s *Source) Pick(ctx context.Context) (string, error) {
	recent, err := s.keywords.ListRecent(ctx, 50)
	if err != nil {
		return "", fmt.Errorf("list trending keywords: %w", err)
	}

	pool := make([]string, 0, len(recent))
	for _, kw := range recent {
		if cleaned := Clean(kw.Keyword); cleaned != "" {
			pool = append(pool, cleaned)
		}
	}

	if len(pool) == 0 {
		slog.WarnContext(ctx, "trending pool empty, using evergreen keywords")
		pool = fallbackKeywords
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.policy {
	case PolicyRecency:
		return pool[s.weightedIndex(len(pool))], nil
	default:
		return pool[s.rng.Intn(len(pool))], nil
	}
}

// Record stores a harvested keyword after cleanup. Empty results of the
// cleanup are dropped silently.
func (s *Source) Record(ctx context.Context, keyword, source string) error {
	cleaned := Clean(keyword)
	if cleaned == "" {
		return nil
	}
	return s.keywords.Create(ctx, cleaned, source)
}

// weightedIndex picks an index with linearly decaying weight, so position 0
// (the newest keyword) is n times likelier than the oldest.
func (s *Source) weightedIndex(n int) int {
	total := n * (n + 1) / 2
	target := s.rng.Intn(total)
	for i := 0; i < n; i++ {
		target -= n - i
		if target < 0 {
			return i
		}
	}
	return n - 1
}

// Clean normalizes a harvested keyword: lowercased, search-phrase prefixes
// stripped, whitespace collapsed.
func Clean(keyword string) string {
	cleaned := strings.ToLower(strings.TrimSpace(keyword))
	for _, prefix := range queryPrefixes {
		cleaned = strings.TrimPrefix(cleaned, prefix)
	}
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) < 3 {
		return ""
	}
	return cleaned
}

// Harvest records a batch of raw keywords from one source feed.
func (s *Source) Harvest(ctx context.Context, raw []string, feed string) int {
	stored := 0
	for _, kw := range raw {
		if err := s.Record(ctx, kw, feed); err != nil {
			slog.WarnContext(ctx, "failed to store trending keyword",
				"keyword", kw, "error", err)
			continue
		}
		if Clean(kw) != "" {
			stored++
		}
	}
	return stored
}
