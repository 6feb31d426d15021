package rag

import (
	"sort"
	"strings"

	"aimy-copilot/internal/model"
)

// keywordRelevance scores content against a query by token overlap. Each
// query word contributes at most 1, scaled by how often it occurs (capped at
// ten occurrences), and the sum is normalized by the query length.
func keywordRelevance(query, content string) float64 {
	if content == "" {
		return 0
	}
	var queryWords []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 2 {
			queryWords = append(queryWords, w)
		}
	}
	if len(queryWords) == 0 {
		return 0
	}
	contentWords := strings.Fields(strings.ToLower(content))

	score := 0.0
	for _, qw := range queryWords {
		hits := 0
		for _, cw := range contentWords {
			if strings.Contains(cw, qw) {
				hits++
			}
		}
		if hits > 0 {
			contribution := float64(hits) / 10
			if contribution > 1 {
				contribution = 1
			}
			score += contribution
		}
	}
	return score / float64(len(queryWords))
}

// mergeAndRank unions semantic and keyword results by document id and sorts
// by relevance descending. A document found by both methods keeps the
// maximum of (semantic×semanticWeight, keyword×keywordWeight) rather than
// the sum, so a strong single-signal match is not double-counted. Pure
// function: safe to test without any backend.
func mergeAndRank(semantic, keyword []model.SourceDocument, semanticWeight, keywordWeight float64) []model.SourceDocument {
	merged := make(map[string]model.SourceDocument, len(semantic)+len(keyword))

	for _, doc := range semantic {
		doc.Relevance *= semanticWeight
		merged[doc.ID] = doc
	}
	for _, doc := range keyword {
		doc.Relevance *= keywordWeight
		if existing, ok := merged[doc.ID]; ok {
			if doc.Relevance > existing.Relevance {
				merged[doc.ID] = doc
			}
			continue
		}
		merged[doc.ID] = doc
	}

	out := make([]model.SourceDocument, 0, len(merged))
	for _, doc := range merged {
		out = append(out, doc)
	}
	sortByRelevance(out)
	return out
}

// sortByRelevance orders by relevance descending, breaking ties by the most
// recent LastUpdated, then by id for a stable total order.
func sortByRelevance(docs []model.SourceDocument) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Relevance != docs[j].Relevance {
			return docs[i].Relevance > docs[j].Relevance
		}
		if !docs[i].Metadata.LastUpdated.Equal(docs[j].Metadata.LastUpdated) {
			return docs[i].Metadata.LastUpdated.After(docs[j].Metadata.LastUpdated)
		}
		return docs[i].ID < docs[j].ID
	})
}
