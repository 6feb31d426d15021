package copilot

import (
	"fmt"
	"strings"

	"aimy-copilot/internal/model"
)

const systemPrompt = `You are the investment copilot for a tokenized real-world-asset platform.
Answer investor questions using only the provided context and source documents.
Be factual and neutral. Never recommend buying, selling or holding any asset.
Never promise or guarantee returns. If the context does not contain the answer,
say so instead of guessing.`

// intentTemplates steer generation per intent; they are appended to the
// system prompt.
var intentTemplates = map[model.IntentKind]string{
	model.IntentPortfolioAnalysis: "Summarize the portfolio's composition, total value and risk profile in plain language.",
	model.IntentAssetRisk:         "Explain the asset's risk score and the factors behind it without judging whether the risk is acceptable.",
	model.IntentAIReport:          "Walk through the AI-generated valuation, yield forecast and any anomalies, always naming the model version and confidence interval.",
	model.IntentPayoutSchedule:    "List the upcoming payouts with dates, amounts and types.",
	model.IntentOrderGuide:        "Describe how orders work on the platform procedurally, without suggesting any particular trade.",
	model.IntentGeneralQuestion:   "Answer the question about the platform or tokenized assets in general terms.",
}

// fallbackResponses are the deterministic answers used when generation fails.
// Each stays inside its intent's territory and points at the data the
// investor can read directly.
var fallbackResponses = map[model.IntentKind]string{
	model.IntentPortfolioAnalysis: "I'm unable to generate a detailed analysis right now. Your portfolio dashboard shows your current holdings, total value and risk profile.",
	model.IntentAssetRisk:         "I'm unable to produce a risk summary right now. Each asset page lists its current risk score and the contributing factors.",
	model.IntentAIReport:          "I'm unable to retrieve the AI report right now. The latest AI-generated valuation and forecast are available on the asset's report tab.",
	model.IntentPayoutSchedule:    "I'm unable to look up your payout schedule right now. Upcoming distributions are listed in the payouts section of your portfolio.",
	model.IntentOrderGuide:        "I'm unable to walk you through ordering right now. The trade screen guides you through placing an order step by step.",
	model.IntentGeneralQuestion:   "I'm unable to answer that right now. Please try again in a moment or browse the help center for platform documentation.",
}

const baseDisclaimer = "This information is for educational purposes only and should not be considered financial advice."

var intentDisclaimers = map[model.IntentKind]string{
	model.IntentPortfolioAnalysis: "Portfolio figures reflect the latest available data and may lag live market values.",
	model.IntentAssetRisk:         "Risk scores are model estimates and do not guarantee future performance.",
	model.IntentAIReport:          "AI-generated reports are produced by statistical models and may contain errors.",
	model.IntentPayoutSchedule:    "Payout dates and amounts are projections and may change before distribution.",
	model.IntentOrderGuide:        "Order execution is subject to market availability and platform terms.",
	model.IntentGeneralQuestion:   "Consult a licensed financial advisor before making investment decisions.",
}

// disclaimerFor returns the shared base disclaimer followed by the intent's
// specific sentence. Every delivered response carries one.
func disclaimerFor(kind model.IntentKind) string {
	suffix, ok := intentDisclaimers[kind]
	if !ok {
		suffix = intentDisclaimers[model.IntentGeneralQuestion]
	}
	return baseDisclaimer + " " + suffix
}

func fallbackResponseFor(kind model.IntentKind) string {
	if text, ok := fallbackResponses[kind]; ok {
		return text
	}
	return fallbackResponses[model.IntentGeneralQuestion]
}

// buildGenerationPrompt assembles the system half of the generation call.
func buildGenerationPrompt(intent model.Intent, bundle *model.ContextBundle, sources []model.SourceDocument) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	if tmpl, ok := intentTemplates[intent.Kind]; ok {
		b.WriteString(tmpl)
		b.WriteString("\n")
	}

	if bundle != nil && bundle.HasAny() {
		b.WriteString("\nContext:\n")
		writeContext(&b, bundle)
	}
	if len(sources) > 0 {
		b.WriteString("\nSource documents:\n")
		for i, doc := range sources {
			fmt.Fprintf(&b, "[%d] %s\n%s\n", i+1, doc.Title, truncate(doc.Content, 1200))
		}
	}
	return b.String()
}

func writeContext(b *strings.Builder, bundle *model.ContextBundle) {
	if p := bundle.Portfolio; p != nil {
		fmt.Fprintf(b, "Portfolio %s: total value %.2f %s, risk profile %s, %d positions.\n",
			p.ID, p.TotalValue, p.Currency, p.RiskProfile, len(p.Positions))
		for _, pos := range p.Positions {
			fmt.Fprintf(b, "  - %s: %.2f (%.1f%% allocation)\n", pos.Symbol, pos.Value, pos.Allocation*100)
		}
	}
	if a := bundle.Asset; a != nil {
		fmt.Fprintf(b, "Asset %s (%s): %s, sector %s, current value %.2f, risk score %.2f, status %s.\n",
			a.Symbol, a.ID, a.Name, a.Sector, a.CurrentValue, a.RiskScore, a.Status)
	}
	if ins := bundle.AIInsights; ins != nil {
		if v := ins.Valuation; v != nil {
			fmt.Fprintf(b, "AI valuation: %.2f (interval %.2f-%.2f, model %s).\n",
				v.EstimatedValue, v.ConfidenceInterval.Lower, v.ConfidenceInterval.Upper, v.ModelVersion)
		}
		if r := ins.Risk; r != nil {
			fmt.Fprintf(b, "AI risk: score %.2f, level %s (model %s).\n", r.Score, r.Level, r.ModelVersion)
		}
		if y := ins.Yield; y != nil && len(y.PredictedYields) > 0 {
			fmt.Fprintf(b, "AI yield forecast (%d periods, model %s): first %.4f.\n",
				len(y.PredictedYields), y.ModelVersion, y.PredictedYields[0])
		}
		for _, an := range ins.Anomalies {
			fmt.Fprintf(b, "Anomaly [%s] %s: %s (score %.2f).\n", an.Severity, an.Timestamp, an.Description, an.AnomalyScore)
		}
	}
	if payouts := bundle.Payouts; payouts != nil {
		fmt.Fprintf(b, "Upcoming payouts: %d scheduled.\n", len(*payouts))
		for _, p := range *payouts {
			fmt.Fprintf(b, "  - %s: %.2f %s (%s) on %s\n",
				p.AssetID, p.Amount, p.Currency, p.Type, p.ScheduledAt.Format("2006-01-02"))
		}
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
