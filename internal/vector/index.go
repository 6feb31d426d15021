// Package vector provides the in-memory embedding index used by retrieval.
// Vectors are persisted alongside documents and reloaded on startup, so the
// index itself can stay a process-local read-mostly structure.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"aimy-copilot/internal/model"
	"aimy-copilot/internal/rag"
)

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type entry struct {
	doc    model.SourceDocument
	vector []float32
}

// Index implements rag.VectorIndex. Searches take the read lock; Upsert and
// Delete take the write lock, so readers never observe a half-written
// document. Last write wins per document id.
type Index struct {
	embedder Embedder

	mu      sync.RWMutex
	entries map[string]entry
}

// NewIndex creates an empty index backed by the given embedder.
func NewIndex(embedder Embedder) *Index {
	return &Index{
		embedder: embedder,
		entries:  make(map[string]entry),
	}
}

// Embed delegates to the embedding client.
func (i *Index) Embed(ctx context.Context, text string) ([]float32, error) {
	if i.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return i.embedder.Embed(ctx, text)
}

// Upsert stores or replaces the document under its id.
func (i *Index) Upsert(ctx context.Context, doc model.SourceDocument, vector []float32) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is empty")
	}
	if len(vector) == 0 {
		return fmt.Errorf("embedding vector is empty")
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[doc.ID] = entry{doc: doc, vector: vector}
	return nil
}

// Delete removes the document. Deleting an unknown id is a no-op.
func (i *Index) Delete(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.entries, id)
	return nil
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// SimilaritySearch returns documents whose cosine similarity to vector meets
// the threshold, best first, capped at opts.Limit.
func (i *Index) SimilaritySearch(ctx context.Context, vector []float32, opts rag.SearchOptions) ([]rag.ScoredDoc, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	i.mu.RLock()
	var hits []rag.ScoredDoc
	for _, e := range i.entries {
		if !opts.Filters.Matches(e.doc.Metadata) {
			continue
		}
		score := cosineSimilarity(vector, e.vector)
		if score < opts.Threshold {
			continue
		}
		hits = append(hits, rag.ScoredDoc{Doc: e.doc, Score: score})
	}
	i.mu.RUnlock()

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].Doc.ID < hits[b].Doc.ID
	})
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
