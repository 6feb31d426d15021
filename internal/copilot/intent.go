package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"aimy-copilot/internal/model"
)

// LanguageModel is the completion contract the pipeline depends on.
type LanguageModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Classifier resolves the intent of a message. The primary path asks the
// language model for a structured answer; any failure there falls back to a
// fixed keyword-rule table so classification stays deterministic when the
// model is degraded.
type Classifier struct {
	llm LanguageModel
	log *zap.Logger
}

func NewClassifier(llm LanguageModel, log *zap.Logger) *Classifier {
	return &Classifier{llm: llm, log: log}
}

const classifySystemPrompt = `You classify investor questions for a tokenized real-world-asset platform.
Respond with a single JSON object and nothing else:
{"intent": "<one of: portfolio_analysis, asset_risk, ai_report, payout_schedule, order_guide, general_question>",
 "confidence": <0.0-1.0>,
 "entities": {"asset_id": "", "portfolio_id": "", "timeframe": "", "risk_type": ""}}
Use general_question when unsure.`

// Classify returns exactly one intent for the message. It never fails: model
// errors and malformed answers degrade to the keyword fallback.
func (c *Classifier) Classify(ctx context.Context, message string, sctx model.SessionContext) model.Intent {
	if c.llm != nil {
		raw, err := c.llm.Complete(ctx, classifySystemPrompt, message)
		if err == nil {
			intent, perr := parseIntentJSON(raw)
			if perr == nil {
				return finalizeIntent(intent, sctx)
			}
			c.log.Warn("intent classification returned malformed json, using keyword fallback",
				zap.Error(perr))
		} else {
			c.log.Warn("intent classification model call failed, using keyword fallback",
				zap.Error(err))
		}
	}
	return finalizeIntent(fallbackClassify(message), sctx)
}

func parseIntentJSON(raw string) (model.Intent, error) {
	var payload struct {
		Intent     string               `json:"intent"`
		Confidence float64              `json:"confidence"`
		Entities   model.IntentEntities `json:"entities"`
	}
	cleaned := stripCodeFence(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return model.Intent{}, fmt.Errorf("%w: no json object in model output", ErrMalformedUpstreamResponse)
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return model.Intent{}, fmt.Errorf("%w: parse intent json failed: %v", ErrMalformedUpstreamResponse, err)
	}

	kind := model.IntentKind(payload.Intent)
	if !model.ValidIntent(kind) {
		return model.Intent{}, fmt.Errorf("%w: unknown intent %q", ErrMalformedUpstreamResponse, payload.Intent)
	}
	confidence := payload.Confidence
	if confidence < 0 || confidence > 1 {
		return model.Intent{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedUpstreamResponse, payload.Confidence)
	}
	return model.Intent{Kind: kind, Confidence: confidence, Entities: payload.Entities}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// fallbackRules are evaluated top-down; the first match wins. Confidences are
// fixed per rule and never adjusted at runtime.
type fallbackRule struct {
	kind       model.IntentKind
	confidence float64
	match      func(lower string) bool
}

var fallbackRules = []fallbackRule{
	{model.IntentPortfolioAnalysis, 0.8, func(s string) bool {
		return strings.Contains(s, "portfolio") || strings.Contains(s, "risk profile")
	}},
	{model.IntentAssetRisk, 0.7, func(s string) bool {
		return strings.Contains(s, "asset") && strings.Contains(s, "risk")
	}},
	{model.IntentAIReport, 0.9, func(s string) bool {
		return strings.Contains(s, "ai") && strings.Contains(s, "report")
	}},
	{model.IntentPayoutSchedule, 0.8, func(s string) bool {
		return strings.Contains(s, "payout") || strings.Contains(s, "distribution")
	}},
	{model.IntentOrderGuide, 0.7, func(s string) bool {
		return strings.Contains(s, "order") || strings.Contains(s, "trade")
	}},
}

var (
	fallbackAssetID     = regexp.MustCompile(`(?i)asset\s+(?:id\s+)?([a-zA-Z0-9-]{2,})`)
	fallbackPortfolioID = regexp.MustCompile(`(?i)portfolio\s+(?:id\s+)?([a-zA-Z0-9-]{2,})`)
	fallbackTimeframe   = regexp.MustCompile(`(?i)(?:last|past|previous)\s+\d+\s+(?:day|week|month|year)s?`)
)

func fallbackClassify(message string) model.Intent {
	lower := strings.ToLower(message)
	intent := model.Intent{Kind: model.IntentGeneralQuestion, Confidence: 0.5}
	for _, rule := range fallbackRules {
		if rule.match(lower) {
			intent.Kind = rule.kind
			intent.Confidence = rule.confidence
			break
		}
	}

	if m := fallbackAssetID.FindStringSubmatch(message); m != nil && !entityStopWord(m[1]) {
		intent.Entities.AssetID = m[1]
	}
	if m := fallbackPortfolioID.FindStringSubmatch(message); m != nil && !entityStopWord(m[1]) {
		intent.Entities.PortfolioID = m[1]
	}
	if m := fallbackTimeframe.FindString(message); m != "" {
		intent.Entities.Timeframe = m
	}
	return intent
}

func entityStopWord(s string) bool {
	switch strings.ToLower(s) {
	case "risk", "value", "price", "report", "analysis", "performance", "id", "the", "is", "was":
		return true
	}
	return false
}

// finalizeIntent derives the access flags from the intent kind and resolves
// entity ids against the session context, which wins on conflict. The flags
// are never taken from model output. ai_report carries no asset-access flag:
// its context comes from the AI insights source alone.
func finalizeIntent(intent model.Intent, sctx model.SessionContext) model.Intent {
	switch intent.Kind {
	case model.IntentPortfolioAnalysis, model.IntentPayoutSchedule:
		intent.RequiresPortfolioAccess = true
	case model.IntentAssetRisk:
		intent.RequiresAssetAccess = true
	}
	if sctx.PortfolioID != "" {
		intent.Entities.PortfolioID = sctx.PortfolioID
	}
	if sctx.AssetID != "" {
		intent.Entities.AssetID = sctx.AssetID
	}
	return intent
}
