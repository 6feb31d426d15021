package rag

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"aimy-copilot/internal/model"
)

var (
	assetIDPattern     = regexp.MustCompile(`(?i)asset\s+(?:id\s+)?([a-zA-Z0-9-]+)`)
	portfolioIDPattern = regexp.MustCompile(`(?i)portfolio\s+(?:id\s+)?([a-zA-Z0-9-]+)`)
	timeframePattern   = regexp.MustCompile(`(?i)(?:last|past|previous)\s+(\d+)\s+(day|week|month|year)s?`)
)

// documentTypeKeywords are checked in order; the first hit wins.
var documentTypeKeywords = []string{
	"prospectus", "term sheet", "financial statement", "ai report", "transparency report",
}

// queryEntities are the references a message mentions explicitly.
type queryEntities struct {
	AssetID      string
	PortfolioID  string
	DocumentType string
	UpdatedAfter time.Time
}

// extractEntities pulls asset/portfolio ids, a document-type keyword and a
// relative time window out of the query with lightweight pattern matching.
func extractEntities(query string, now time.Time) queryEntities {
	var e queryEntities

	if m := assetIDPattern.FindStringSubmatch(query); m != nil && !isStopWord(m[1]) {
		e.AssetID = m[1]
	}
	if m := portfolioIDPattern.FindStringSubmatch(query); m != nil && !isStopWord(m[1]) {
		e.PortfolioID = m[1]
	}

	lower := strings.ToLower(query)
	for _, kw := range documentTypeKeywords {
		if strings.Contains(lower, kw) {
			e.DocumentType = kw
			break
		}
	}

	if m := timeframePattern.FindStringSubmatch(query); m != nil {
		amount, err := strconv.Atoi(m[1])
		if err == nil && amount > 0 {
			switch strings.ToLower(m[2]) {
			case "day":
				e.UpdatedAfter = now.AddDate(0, 0, -amount)
			case "week":
				e.UpdatedAfter = now.AddDate(0, 0, -7*amount)
			case "month":
				e.UpdatedAfter = now.AddDate(0, -amount, 0)
			case "year":
				e.UpdatedAfter = now.AddDate(-amount, 0, 0)
			}
		}
	}
	return e
}

// isStopWord filters captures like "asset risk" where the following word is
// ordinary language rather than an identifier.
func isStopWord(s string) bool {
	switch strings.ToLower(s) {
	case "risk", "value", "price", "report", "analysis", "performance",
		"documents", "document", "id", "the", "a", "an", "is", "was":
		return true
	}
	return false
}

// buildFilters combines extracted entities with the caller's session
// context. The caller context is authoritative on conflict.
func buildFilters(entities queryEntities, sctx model.SessionContext) Filters {
	f := Filters{
		AssetID:      entities.AssetID,
		PortfolioID:  entities.PortfolioID,
		DocumentType: entities.DocumentType,
		UpdatedAfter: entities.UpdatedAfter,
	}
	if sctx.AssetID != "" {
		f.AssetID = sctx.AssetID
	}
	if sctx.PortfolioID != "" {
		f.PortfolioID = sctx.PortfolioID
	}
	return f
}

// inferDocumentType derives a document type from the title, falling back to
// metadata and defaulting to asset_doc.
func inferDocumentType(title, documentType string) model.DocumentType {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "prospectus") || strings.Contains(lower, "terms"):
		return model.DocTypeAssetDoc
	case strings.Contains(lower, "ai") || strings.Contains(lower, "transparency") || strings.Contains(lower, "report"):
		return model.DocTypeAIReport
	case strings.Contains(lower, "portfolio") || strings.Contains(lower, "holdings"):
		return model.DocTypePortfolio
	case strings.Contains(lower, "market") || strings.Contains(lower, "price") || strings.Contains(lower, "trading"):
		return model.DocTypeMarketData
	}
	switch model.DocumentType(documentType) {
	case model.DocTypeAssetDoc, model.DocTypeAIReport, model.DocTypePortfolio, model.DocTypeMarketData:
		return model.DocumentType(documentType)
	}
	return model.DocTypeAssetDoc
}
