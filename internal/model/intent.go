package model

// IntentKind is the closed set of copilot intents. Exactly one is resolved
// per turn; ambiguous input resolves to IntentGeneralQuestion.
type IntentKind string

const (
	IntentPortfolioAnalysis IntentKind = "portfolio_analysis"
	IntentAssetRisk         IntentKind = "asset_risk"
	IntentAIReport          IntentKind = "ai_report"
	IntentPayoutSchedule    IntentKind = "payout_schedule"
	IntentOrderGuide        IntentKind = "order_guide"
	IntentGeneralQuestion   IntentKind = "general_question"
)

// ValidIntent reports whether k is a member of the intent enum.
func ValidIntent(k IntentKind) bool {
	switch k {
	case IntentPortfolioAnalysis, IntentAssetRisk, IntentAIReport,
		IntentPayoutSchedule, IntentOrderGuide, IntentGeneralQuestion:
		return true
	}
	return false
}

// IntentEntities are references extracted from the message alongside the
// intent itself.
type IntentEntities struct {
	AssetID     string `json:"asset_id,omitempty"`
	PortfolioID string `json:"portfolio_id,omitempty"`
	Timeframe   string `json:"timeframe,omitempty"`
	RiskType    string `json:"risk_type,omitempty"`
}

// Intent is the classified purpose of one message.
type Intent struct {
	Kind                    IntentKind     `json:"intent"`
	Confidence              float64        `json:"confidence"`
	Entities                IntentEntities `json:"entities"`
	RequiresPortfolioAccess bool           `json:"requires_portfolio_access"`
	RequiresAssetAccess     bool           `json:"requires_asset_access"`
}
