package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aimy-copilot/internal/model"
)

type fakeIndex struct {
	embedErr  error
	searchErr error
	hits      []ScoredDoc
}

func (f *fakeIndex) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeIndex) SimilaritySearch(ctx context.Context, vector []float32, opts SearchOptions) ([]ScoredDoc, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

type fakeStore struct {
	searchErr error
	listErr   error
	docs      []model.Document
	metadata  map[string]*model.DocumentMetadata
}

func (f *fakeStore) Search(ctx context.Context, query string, filters Filters) ([]model.Document, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.docs, nil
}

func (f *fakeStore) GetMetadata(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	if meta, ok := f.metadata[id]; ok {
		return meta, nil
	}
	return nil, nil
}

func (f *fakeStore) List(ctx context.Context, filters Filters) ([]model.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

func newTestRetriever(index *fakeIndex, store *fakeStore) *HybridRetriever {
	r := NewHybridRetriever(index, store, DefaultConfig(), zap.NewNop())
	r.now = func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) }
	return r
}

func scored(id string, score float64) ScoredDoc {
	return ScoredDoc{
		Doc:   model.SourceDocument{ID: id, Title: "doc " + id, Content: "content"},
		Score: score,
	}
}

func TestSearchRanksAndFilters(t *testing.T) {
	index := &fakeIndex{hits: []ScoredDoc{
		scored("strong", 0.95), // 0.665 weighted
		scored("weak", 0.71),   // 0.497 weighted, dropped below 0.5
	}}
	store := &fakeStore{}
	r := newTestRetriever(index, store)

	docs := r.Search(context.Background(), "portfolio overview", model.SessionContext{})
	require.Len(t, docs, 1)
	assert.Equal(t, "strong", docs[0].ID)
	assert.GreaterOrEqual(t, docs[0].Relevance, 0.5)
}

func TestSearchAppliesEnrichmentBoosts(t *testing.T) {
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	stale := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	index := &fakeIndex{hits: []ScoredDoc{
		scored("recent-report", 0.9), // 0.63 + 0.1 recency + no type boost yet
		scored("stale", 0.9),         // 0.63 only
	}}
	store := &fakeStore{metadata: map[string]*model.DocumentMetadata{
		"recent-report": {LastUpdated: recent, DocumentType: "ai report"},
		"stale":         {LastUpdated: stale},
	}}
	r := newTestRetriever(index, store)

	docs := r.Search(context.Background(), "quarterly report", model.SessionContext{})
	require.Len(t, docs, 2)
	assert.Equal(t, "recent-report", docs[0].ID)
	assert.InDelta(t, 0.73, docs[0].Relevance, 1e-9)
	assert.InDelta(t, 0.63, docs[1].Relevance, 1e-9)
}

func TestSearchRelevanceClampedToOne(t *testing.T) {
	recent := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	hit := scored("top", 1.39) // 0.973 weighted, boosts would push past 1.0
	hit.Doc.Title = "AI transparency report"

	index := &fakeIndex{hits: []ScoredDoc{hit}}
	store := &fakeStore{metadata: map[string]*model.DocumentMetadata{
		"top": {LastUpdated: recent},
	}}
	r := newTestRetriever(index, store)

	docs := r.Search(context.Background(), "transparency", model.SessionContext{})
	require.Len(t, docs, 1)
	assert.LessOrEqual(t, docs[0].Relevance, 1.0)
}

func TestSearchCapsAtMaxResults(t *testing.T) {
	index := &fakeIndex{}
	for i := 0; i < 12; i++ {
		index.hits = append(index.hits, scored(string(rune('a'+i)), 0.99))
	}
	r := newTestRetriever(index, &fakeStore{})

	docs := r.Search(context.Background(), "everything", model.SessionContext{})
	assert.Len(t, docs, 8)
	for i := 1; i < len(docs); i++ {
		assert.GreaterOrEqual(t, docs[i-1].Relevance, docs[i].Relevance, "relevance must be non-increasing")
	}
}

func TestSearchIdempotentOnUnchangedIndex(t *testing.T) {
	index := &fakeIndex{hits: []ScoredDoc{
		scored("a", 0.9), scored("b", 0.9), scored("c", 0.85),
	}}
	r := newTestRetriever(index, &fakeStore{})

	first := r.Search(context.Background(), "solar yields", model.SessionContext{})
	second := r.Search(context.Background(), "solar yields", model.SessionContext{})
	assert.Equal(t, first, second)
}

func TestSearchSurvivesSingleBackendFailure(t *testing.T) {
	store := &fakeStore{docs: []model.Document{
		{ID: "kw", Title: "Solar prospectus", Content: "solar solar solar solar solar solar solar solar solar solar solar solar solar solar solar solar solar"},
	}}

	t.Run("semantic down", func(t *testing.T) {
		index := &fakeIndex{embedErr: errors.New("embedding service down")}
		r := newTestRetriever(index, store)
		// Keyword relevance alone is weighted by 0.3 and lands under the 0.5
		// floor; the turn still completes with an empty, non-nil result.
		docs := r.Search(context.Background(), "solar", model.SessionContext{})
		require.NotNil(t, docs)
	})

	t.Run("keyword down", func(t *testing.T) {
		index := &fakeIndex{hits: []ScoredDoc{scored("sem", 0.95)}}
		r := newTestRetriever(index, &fakeStore{searchErr: errors.New("store down")})
		docs := r.Search(context.Background(), "solar", model.SessionContext{})
		require.Len(t, docs, 1)
		assert.Equal(t, "sem", docs[0].ID)
	})
}

func TestSearchFallsBackToSubstring(t *testing.T) {
	index := &fakeIndex{embedErr: errors.New("down")}
	store := &fakeStore{
		searchErr: errors.New("down"),
		docs: []model.Document{
			{ID: "match", Title: "Solar farm terms", Content: "terms for the solar farm"},
			{ID: "other", Title: "Wind update", Content: "unrelated"},
		},
	}
	r := newTestRetriever(index, store)

	docs := r.Search(context.Background(), "solar", model.SessionContext{})
	require.Len(t, docs, 1)
	assert.Equal(t, "match", docs[0].ID)
	assert.Equal(t, 0.5, docs[0].Relevance)
	assert.Equal(t, 0.4, docs[0].Metadata.Confidence)
}

func TestSearchReturnsEmptyWhenEverythingFails(t *testing.T) {
	index := &fakeIndex{embedErr: errors.New("down")}
	store := &fakeStore{searchErr: errors.New("down"), listErr: errors.New("down")}
	r := newTestRetriever(index, store)

	docs := r.Search(context.Background(), "anything", model.SessionContext{})
	require.NotNil(t, docs)
	assert.Empty(t, docs)
}
