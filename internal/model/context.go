package model

import "time"

// Portfolio is the investor's holdings snapshot served by the platform API.
type Portfolio struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	TotalValue  float64             `json:"total_value"`
	Currency    string              `json:"currency"`
	RiskProfile string              `json:"risk_profile"`
	Positions   []PortfolioPosition `json:"positions"`
}

type PortfolioPosition struct {
	AssetID    string  `json:"asset_id"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	Value      float64 `json:"value"`
	Allocation float64 `json:"allocation"`
}

// Payout is one upcoming distribution for a portfolio.
type Payout struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	AssetID     string    `json:"asset_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Type        string    `json:"type"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Asset is a tokenized real-world asset.
type Asset struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Sector       string  `json:"sector"`
	CurrentValue float64 `json:"current_value"`
	RiskScore    float64 `json:"risk_score"`
	Status       string  `json:"status"`
}

// ConfidenceInterval is the [lower, upper] band reported by the numeric
// model service alongside every prediction.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type AssetValuation struct {
	EstimatedValue     float64            `json:"estimated_value"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	ModelVersion       string             `json:"model_version"`
}

type AssetRisk struct {
	Score              float64            `json:"risk_score"`
	Level              string             `json:"risk_level"`
	Factors            map[string]float64 `json:"risk_factors,omitempty"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	ModelVersion       string             `json:"model_version"`
}

type YieldForecast struct {
	PredictedYields []float64 `json:"predicted_yields"`
	ModelVersion    string    `json:"model_version"`
}

type Anomaly struct {
	Timestamp    string  `json:"timestamp"`
	Severity     string  `json:"severity"`
	Description  string  `json:"description"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// AssetInsights is the composite output of the numeric model service for one
// asset. Any section may be nil when the corresponding endpoint failed.
type AssetInsights struct {
	AssetID     string          `json:"asset_id"`
	Valuation   *AssetValuation `json:"valuation,omitempty"`
	Risk        *AssetRisk      `json:"risk,omitempty"`
	Yield       *YieldForecast  `json:"yield,omitempty"`
	Anomalies   []Anomaly       `json:"anomalies,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ContextBundle accumulates the per-source data an intent needs. Every field
// is a pointer: nil means the source was not gathered (required-but-failed or
// simply not required), while a non-nil empty value means the source answered
// with nothing. The two cases are deliberately distinguishable.
type ContextBundle struct {
	SessionID  string
	GatheredAt time.Time

	Portfolio  *Portfolio
	Asset      *Asset
	AIInsights *AssetInsights
	Payouts    *[]Payout
}

// HasAny reports whether at least one source was populated.
func (b *ContextBundle) HasAny() bool {
	return b.Portfolio != nil || b.Asset != nil || b.AIInsights != nil || b.Payouts != nil
}
