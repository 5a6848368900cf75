package retrieval

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"brewcast.app/captioner/internal/model"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "day": {}, "get": {}, "has": {},
	"him": {}, "his": {}, "how": {}, "its": {}, "new": {}, "now": {},
	"old": {}, "see": {}, "two": {}, "way": {}, "who": {}, "did": {},
	"that": {}, "this": {}, "with": {}, "have": {}, "from": {}, "they": {},
	"will": {}, "been": {}, "were": {}, "said": {}, "each": {}, "which": {},
	"their": {}, "about": {}, "would": {}, "there": {}, "could": {},
	"other": {}, "into": {}, "more": {}, "some": {}, "very": {}, "what": {},
	"when": {}, "your": {}, "just": {}, "like": {}, "over": {}, "also": {},
	"than": {}, "then": {}, "them": {}, "these": {}, "only": {},
}

// Tokenize lowercases, splits on non-letter runs, and drops stopwords and
// tokens shorter than three characters.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

type indexedDoc struct {
	doc    model.Document
	vector map[string]float64 // L2-normalized tf-idf weights
}

// Index is an immutable tf-idf index over one corpus snapshot. Queries run
// against it lock-free; rebuilds produce a fresh Index that the retriever
// swaps in atomically.
type Index struct {
	docs []indexedDoc
	idf  map[string]float64
}

// BuildIndex constructs an index from a corpus snapshot. Corrupt documents
// are skipped with a warning rather than failing the rebuild.
func BuildIndex(ctx context.Context, docs []model.Document) *Index {
	type tokenized struct {
		doc    model.Document
		counts map[string]int
		total  int
	}

	prepared := make([]tokenized, 0, len(docs))
	df := make(map[string]int)
	skipped := 0

	for _, doc := range docs {
		if !doc.Valid() {
			skipped++
			continue
		}

		tokens := Tokenize(doc.Text)
		if len(tokens) == 0 {
			skipped++
			continue
		}

		counts := make(map[string]int, len(tokens))
		for _, t := range tokens {
			counts[t]++
		}
		for term := range counts {
			df[term]++
		}
		prepared = append(prepared, tokenized{doc: doc, counts: counts, total: len(tokens)})
	}

	if skipped > 0 {
		slog.WarnContext(ctx, "skipped unindexable documents",
			"skipped", skipped, "indexed", len(prepared))
	}

	n := len(prepared)
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		// Smoothed so terms present in every document still carry weight.
		idf[term] = math.Log(float64(n+1)/float64(count+1)) + 1
	}

	indexed := make([]indexedDoc, 0, n)
	for _, p := range prepared {
		vector := make(map[string]float64, len(p.counts))
		var norm float64
		for term, count := range p.counts {
			w := (float64(count) / float64(p.total)) * idf[term]
			vector[term] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for term := range vector {
				vector[term] /= norm
			}
		}
		indexed = append(indexed, indexedDoc{doc: p.doc, vector: vector})
	}

	return &Index{docs: indexed, idf: idf}
}

// Size returns the number of indexed documents.
func (ix *Index) Size() int {
	return len(ix.docs)
}

// queryVector builds an L2-normalized tf-idf vector for the query terms.
// Terms unknown to the corpus get the maximum idf so novel keywords are not
// silently zeroed out.
func (ix *Index) queryVector(terms []string) map[string]float64 {
	if len(terms) == 0 {
		return nil
	}

	maxIDF := 1.0
	for _, v := range ix.idf {
		if v > maxIDF {
			maxIDF = v
		}
	}

	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}

	vector := make(map[string]float64, len(counts))
	var norm float64
	for term, count := range counts {
		idf, known := ix.idf[term]
		if !known {
			idf = maxIDF
		}
		w := (float64(count) / float64(len(terms))) * idf
		vector[term] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for term := range vector {
			vector[term] /= norm
		}
	}
	return vector
}

// cosine computes similarity between the query vector and a document vector.
// Both sides are pre-normalized so this is a plain dot product.
func cosine(query, doc map[string]float64) float64 {
	// Iterate the smaller map.
	if len(doc) < len(query) {
		query, doc = doc, query
	}
	var sum float64
	for term, qw := range query {
		if dw, ok := doc[term]; ok {
			sum += qw * dw
		}
	}
	return sum
}
