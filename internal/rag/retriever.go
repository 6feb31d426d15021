package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aimy-copilot/internal/model"
)

// Config carries the retrieval tuning knobs. The weights and thresholds are
// fixed parameters of the ranking function, not learned values.
type Config struct {
	SemanticWeight    float64
	KeywordWeight     float64
	SemanticThreshold float64
	SemanticLimit     int
	MaxResults        int
	MinRelevance      float64
	RecencyBoostDays  int
	FallbackLimit     int
}

// DefaultConfig returns the production retrieval parameters.
func DefaultConfig() Config {
	return Config{
		SemanticWeight:    0.7,
		KeywordWeight:     0.3,
		SemanticThreshold: 0.7,
		SemanticLimit:     10,
		MaxResults:        8,
		MinRelevance:      0.5,
		RecencyBoostDays:  30,
		FallbackLimit:     5,
	}
}

// HybridRetriever blends semantic and lexical search over the document
// corpus. Retrieval never fails a turn: each strategy in the chain degrades
// to the next, and the last resort is an empty result set.
type HybridRetriever struct {
	index Index
	store DocumentStore
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

// Index is the slice of VectorIndex the retriever needs.
type Index interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	SimilaritySearch(ctx context.Context, vector []float32, opts SearchOptions) ([]ScoredDoc, error)
}

// NewHybridRetriever wires the retriever against its two backends.
func NewHybridRetriever(index Index, store DocumentStore, cfg Config, log *zap.Logger) *HybridRetriever {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxResults <= 0 {
		cfg = DefaultConfig()
	}
	return &HybridRetriever{index: index, store: store, cfg: cfg, log: log, now: time.Now}
}

// Search returns up to MaxResults documents relevant to the query, ranked by
// relevance descending. The degradation chain is an explicit ordered list of
// strategies run until one succeeds; the empty set is the terminal fallback.
func (r *HybridRetriever) Search(ctx context.Context, query string, sctx model.SessionContext) []model.SourceDocument {
	strategies := []struct {
		name string
		run  func(context.Context, string, model.SessionContext) ([]model.SourceDocument, error)
	}{
		{"hybrid", r.hybridSearch},
		{"substring", r.substringSearch},
	}

	for _, s := range strategies {
		docs, err := s.run(ctx, query, sctx)
		if err != nil {
			r.log.Warn("retrieval strategy failed, degrading",
				zap.String("strategy", s.name), zap.Error(err))
			continue
		}
		if docs == nil {
			docs = []model.SourceDocument{}
		}
		return docs
	}
	return []model.SourceDocument{}
}

// hybridSearch is the primary strategy: preprocess, dual search, merge,
// enrich, filter, cap. It errors only when both halves of the dual search
// fail, which hands control to the substring fallback.
func (r *HybridRetriever) hybridSearch(ctx context.Context, query string, sctx model.SessionContext) ([]model.SourceDocument, error) {
	entities := extractEntities(query, r.now())
	filters := buildFilters(entities, sctx)

	var (
		semantic    []model.SourceDocument
		keyword     []model.SourceDocument
		semanticErr error
		keywordErr  error
	)

	// Both searches are independent network calls; run them concurrently
	// and join. Either side may come back empty without failing the turn.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semantic, semanticErr = r.semanticSearch(gctx, query, filters)
		return nil
	})
	g.Go(func() error {
		keyword, keywordErr = r.keywordSearch(gctx, query, filters)
		return nil
	})
	_ = g.Wait()

	if semanticErr != nil {
		r.log.Warn("semantic search failed", zap.Error(semanticErr))
	}
	if keywordErr != nil {
		r.log.Warn("keyword search failed", zap.Error(keywordErr))
	}
	if semanticErr != nil && keywordErr != nil {
		return nil, fmt.Errorf("both search backends failed: %v / %v", semanticErr, keywordErr)
	}

	merged := mergeAndRank(semantic, keyword, r.cfg.SemanticWeight, r.cfg.KeywordWeight)
	enriched := r.enrich(ctx, merged)

	kept := enriched[:0]
	for _, doc := range enriched {
		if doc.Relevance >= r.cfg.MinRelevance {
			kept = append(kept, doc)
		}
	}
	sortByRelevance(kept)
	if len(kept) > r.cfg.MaxResults {
		kept = kept[:r.cfg.MaxResults]
	}
	return kept, nil
}

func (r *HybridRetriever) semanticSearch(ctx context.Context, query string, filters Filters) ([]model.SourceDocument, error) {
	vector, err := r.index.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	hits, err := r.index.SimilaritySearch(ctx, vector, SearchOptions{
		Limit:     r.cfg.SemanticLimit,
		Threshold: r.cfg.SemanticThreshold,
		Filters:   filters,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	docs := make([]model.SourceDocument, 0, len(hits))
	for _, hit := range hits {
		doc := hit.Doc
		doc.Relevance = hit.Score
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *HybridRetriever) keywordSearch(ctx context.Context, query string, filters Filters) ([]model.SourceDocument, error) {
	rows, err := r.store.Search(ctx, query, filters)
	if err != nil {
		return nil, fmt.Errorf("document store search failed: %w", err)
	}

	docs := make([]model.SourceDocument, 0, len(rows))
	for _, row := range rows {
		meta := row.Metadata()
		meta.Confidence = 0.6
		docs = append(docs, model.SourceDocument{
			ID:        row.ID,
			Title:     row.Title,
			Content:   row.Content,
			URL:       row.URL,
			Type:      inferDocumentType(row.Title, row.DocumentType),
			Relevance: keywordRelevance(query, row.Content),
			Metadata:  meta,
		})
	}
	return docs, nil
}

// enrich refreshes metadata per candidate and applies the recency and
// ai_report boosts, clamped to 1.0. A metadata failure keeps the bare
// result instead of dropping it.
func (r *HybridRetriever) enrich(ctx context.Context, docs []model.SourceDocument) []model.SourceDocument {
	cutoff := r.now().AddDate(0, 0, -r.cfg.RecencyBoostDays)
	for i := range docs {
		meta, err := r.store.GetMetadata(ctx, docs[i].ID)
		if err != nil {
			r.log.Debug("metadata enrichment failed", zap.String("doc_id", docs[i].ID), zap.Error(err))
		} else if meta != nil {
			docs[i].Metadata.AssetID = meta.AssetID
			docs[i].Metadata.PortfolioID = meta.PortfolioID
			docs[i].Metadata.DocumentType = meta.DocumentType
			docs[i].Metadata.LastUpdated = meta.LastUpdated
		}

		if !docs[i].Metadata.LastUpdated.IsZero() && docs[i].Metadata.LastUpdated.After(cutoff) {
			docs[i].Relevance += 0.1
		}
		if docs[i].Type == model.DocTypeAIReport {
			docs[i].Relevance += 0.05
		}
		if docs[i].Relevance > 1.0 {
			docs[i].Relevance = 1.0
		}
	}
	return docs
}

// substringSearch is the degraded strategy: a plain listing filtered by
// substring match, with fixed relevance and confidence.
func (r *HybridRetriever) substringSearch(ctx context.Context, query string, sctx model.SessionContext) ([]model.SourceDocument, error) {
	filters := buildFilters(queryEntities{}, sctx)
	rows, err := r.store.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("document listing failed: %w", err)
	}

	needle := strings.ToLower(query)
	var docs []model.SourceDocument
	for _, row := range rows {
		if !strings.Contains(strings.ToLower(row.Title), needle) &&
			!strings.Contains(strings.ToLower(row.Content), needle) {
			continue
		}
		meta := row.Metadata()
		meta.Confidence = 0.4
		docs = append(docs, model.SourceDocument{
			ID:        row.ID,
			Title:     row.Title,
			Content:   row.Content,
			URL:       row.URL,
			Type:      inferDocumentType(row.Title, row.DocumentType),
			Relevance: 0.5,
			Metadata:  meta,
		})
		if len(docs) >= r.cfg.FallbackLimit {
			break
		}
	}
	return docs, nil
}
