// Package rag implements the hybrid retrieval engine behind the copilot:
// semantic and keyword search run side by side, results are merged with
// fixed weights and enriched, and every failure degrades instead of
// aborting the turn.
package rag

import (
	"context"
	"time"

	"aimy-copilot/internal/model"
)

// SearchOptions bounds a similarity search.
type SearchOptions struct {
	Limit     int
	Threshold float64
	Filters   Filters
}

// Filters narrows searches by entity references. Zero values mean no
// constraint.
type Filters struct {
	AssetID      string
	PortfolioID  string
	DocumentType string
	UpdatedAfter time.Time
}

// Matches reports whether a document's metadata satisfies the filters.
func (f Filters) Matches(meta model.DocumentMetadata) bool {
	if f.AssetID != "" && meta.AssetID != f.AssetID {
		return false
	}
	if f.PortfolioID != "" && meta.PortfolioID != f.PortfolioID {
		return false
	}
	if f.DocumentType != "" && meta.DocumentType != f.DocumentType {
		return false
	}
	if !f.UpdatedAfter.IsZero() && meta.LastUpdated.Before(f.UpdatedAfter) {
		return false
	}
	return true
}

// ScoredDoc is a raw similarity hit from the vector index.
type ScoredDoc struct {
	Doc   model.SourceDocument
	Score float64
}

// VectorIndex is the embedding index collaborator. Upsert and Delete must be
// safe to call concurrently with ongoing searches; last write wins per id.
type VectorIndex interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	SimilaritySearch(ctx context.Context, vector []float32, opts SearchOptions) ([]ScoredDoc, error)
	Upsert(ctx context.Context, doc model.SourceDocument, vector []float32) error
	Delete(ctx context.Context, id string) error
}

// DocumentStore is the lexical document collaborator.
type DocumentStore interface {
	Search(ctx context.Context, query string, filters Filters) ([]model.Document, error)
	GetMetadata(ctx context.Context, id string) (*model.DocumentMetadata, error)
	List(ctx context.Context, filters Filters) ([]model.Document, error)
}
