package rag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aimy-copilot/internal/model"
)

func TestKeywordRelevance(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		content string
		want    float64
	}{
		{"empty content", "portfolio risk", "", 0},
		{"no query words over two runes", "a an is", "portfolio overview", 0},
		{"no overlap", "payout schedule", "solar farm prospectus", 0},
		{"single hit single word", "portfolio", "your portfolio held steady", 0.1},
		{"hits capped at ten", "solar", "solar solar solar solar solar solar solar solar solar solar solar solar", 1.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, keywordRelevance(tc.query, tc.content), 1e-9)
		})
	}
}

func TestKeywordRelevanceNormalizedByQueryLength(t *testing.T) {
	// One of two query words hits once: (1/10)/2.
	got := keywordRelevance("portfolio payout", "portfolio summary")
	assert.InDelta(t, 0.05, got, 1e-9)
}

func TestMergeAndRankUnionKeepsMaxWeighted(t *testing.T) {
	semantic := []model.SourceDocument{
		{ID: "a", Relevance: 0.9}, // 0.63 weighted
		{ID: "b", Relevance: 0.8}, // 0.56 weighted
	}
	keyword := []model.SourceDocument{
		{ID: "b", Relevance: 1.0}, // 0.30 weighted, loses to semantic
		{ID: "c", Relevance: 0.9}, // 0.27 weighted
	}

	ranked := mergeAndRank(semantic, keyword, 0.7, 0.3)
	require.Len(t, ranked, 3)

	assert.Equal(t, "a", ranked[0].ID)
	assert.InDelta(t, 0.63, ranked[0].Relevance, 1e-9)
	assert.Equal(t, "b", ranked[1].ID)
	assert.InDelta(t, 0.56, ranked[1].Relevance, 1e-9, "found by both: max of weighted scores, not the sum")
	assert.Equal(t, "c", ranked[2].ID)
	assert.InDelta(t, 0.27, ranked[2].Relevance, 1e-9)
}

func TestMergeAndRankKeywordWinsWhenLarger(t *testing.T) {
	semantic := []model.SourceDocument{{ID: "x", Relevance: 0.3}} // 0.21
	keyword := []model.SourceDocument{{ID: "x", Relevance: 0.9}}  // 0.27

	ranked := mergeAndRank(semantic, keyword, 0.7, 0.3)
	require.Len(t, ranked, 1)
	assert.InDelta(t, 0.27, ranked[0].Relevance, 1e-9)
}

func TestSortByRelevanceTieBreaks(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	docs := []model.SourceDocument{
		{ID: "c", Relevance: 0.8, Metadata: model.DocumentMetadata{LastUpdated: older}},
		{ID: "b", Relevance: 0.8, Metadata: model.DocumentMetadata{LastUpdated: newer}},
		{ID: "a", Relevance: 0.9},
		{ID: "e", Relevance: 0.8, Metadata: model.DocumentMetadata{LastUpdated: older}},
	}
	sortByRelevance(docs)

	ids := []string{docs[0].ID, docs[1].ID, docs[2].ID, docs[3].ID}
	assert.Equal(t, []string{"a", "b", "c", "e"}, ids,
		"relevance desc, then most recent update, then id")
}
