package model

import "time"

// SessionContext identifies the caller of a copilot turn. PortfolioID and
// AssetID are optional hints from the UI (e.g. the page the user is on).
type SessionContext struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	PortfolioID string `json:"portfolio_id,omitempty"`
	AssetID     string `json:"asset_id,omitempty"`
}

// DocumentType classifies a retrievable source document.
type DocumentType string

const (
	DocTypeAssetDoc   DocumentType = "asset_doc"
	DocTypeAIReport   DocumentType = "ai_report"
	DocTypePortfolio  DocumentType = "portfolio"
	DocTypeMarketData DocumentType = "market_data"
)

// DocumentMetadata is the enrichment payload attached to a source document.
type DocumentMetadata struct {
	AssetID      string    `json:"asset_id,omitempty"`
	PortfolioID  string    `json:"portfolio_id,omitempty"`
	DocumentType string    `json:"document_type,omitempty"`
	LastUpdated  time.Time `json:"last_updated,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
}

// SourceDocument is one ranked retrieval result. Relevance is recomputed on
// every search and never persisted.
type SourceDocument struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	URL       string           `json:"url"`
	Type      DocumentType     `json:"type"`
	Relevance float64          `json:"relevance"`
	Metadata  DocumentMetadata `json:"metadata"`
}

// ResponseMetadata carries the mandatory disclaimer plus optional risk and
// confidence annotations.
type ResponseMetadata struct {
	RiskLevel  string  `json:"risk_level,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Disclaimer string  `json:"disclaimer"`
}

// ChatResponse is the delivered answer for one turn. Sources is never nil
// and holds at most eight documents sorted by relevance descending.
type ChatResponse struct {
	Content  string           `json:"content"`
	Sources  []SourceDocument `json:"sources"`
	Metadata ResponseMetadata `json:"metadata"`
}
