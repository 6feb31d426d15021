package copilot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aimy-copilot/internal/model"
	"aimy-copilot/internal/safety"
)

// TurnState tracks a message through the pipeline. Blocked and Errored are
// terminal; every other state advances forward only.
type TurnState string

const (
	StateReceived        TurnState = "received"
	StateInputChecked    TurnState = "input_checked"
	StateIntentResolved  TurnState = "intent_resolved"
	StateContextGathered TurnState = "context_gathered"
	StateRetrieved       TurnState = "retrieved"
	StateGenerated       TurnState = "generated"
	StateOutputChecked   TurnState = "output_checked"
	StateDelivered       TurnState = "delivered"
	StateBlocked         TurnState = "blocked"
	StateErrored         TurnState = "errored"
)

// Retriever returns ranked source documents for a query. Implementations
// degrade internally and never fail the turn.
type Retriever interface {
	Search(ctx context.Context, query string, sctx model.SessionContext) []model.SourceDocument
}

// AuditPublisher records the outcome of a turn. Publishing is best-effort;
// failures are logged, never surfaced.
type AuditPublisher interface {
	Publish(ctx context.Context, event model.AuditEvent) error
}

const (
	inputBlockedPrefix   = "I cannot process that request. "
	outputBlockedMessage = "I generated a response that did not pass safety review. Please rephrase your question and try again."
	erroredMessage       = "I'm sorry, I'm unable to process your request right now. Please try again later."
)

// Orchestrator runs one pipeline turn per inbound message. Turns share no
// mutable state, so any number may run concurrently.
type Orchestrator struct {
	guard      *safety.Guard
	classifier *Classifier
	gatherer   *ContextGatherer
	retriever  Retriever
	llm        LanguageModel
	audit      AuditPublisher
	log        *zap.Logger
}

func NewOrchestrator(
	guard *safety.Guard,
	classifier *Classifier,
	gatherer *ContextGatherer,
	retriever Retriever,
	llm LanguageModel,
	audit AuditPublisher,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		guard:      guard,
		classifier: classifier,
		gatherer:   gatherer,
		retriever:  retriever,
		llm:        llm,
		audit:      audit,
		log:        log,
	}
}

// HandleMessage runs the full pipeline and always returns a deliverable
// response: blocked and errored turns produce fixed deflection messages, and
// no internal error text ever reaches the caller.
func (o *Orchestrator) HandleMessage(ctx context.Context, message string, sctx model.SessionContext) (resp *model.ChatResponse) {
	turnID := uuid.NewString()
	start := time.Now()
	state := StateReceived
	intent := model.Intent{Kind: model.IntentGeneralQuestion}
	riskLevel := ""

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("copilot turn panicked",
				zap.String("turn_id", turnID),
				zap.String("state", string(state)),
				zap.Error(fmt.Errorf("%w: panic: %v", ErrInternal, r)))
			state = StateErrored
			resp = o.erroredResponse()
		}
		o.recordTurn(turnID, sctx, intent, state, riskLevel, time.Since(start))
	}()

	verdict := o.guard.ValidateMessage(message)
	if !verdict.Safe {
		state = StateBlocked
		riskLevel = string(verdict.RiskLevel)
		o.log.Info("input blocked",
			zap.String("turn_id", turnID),
			zap.String("risk_level", riskLevel),
			zap.Strings("rule_ids", verdict.MatchedRuleIDs),
			zap.Error(fmt.Errorf("%w: %s", ErrInputRejected, verdict.Reason)))
		return o.blockedInputResponse(verdict)
	}
	state = StateInputChecked

	intent = o.classifier.Classify(ctx, message, sctx)
	state = StateIntentResolved

	bundle, err := o.gatherer.Gather(ctx, intent, sctx)
	if err != nil {
		// Degraded context is acceptable; the turn continues with what
		// was gathered (possibly nothing).
		o.log.Warn("context gathering degraded",
			zap.String("turn_id", turnID),
			zap.String("intent", string(intent.Kind)),
			zap.Error(err))
	}
	state = StateContextGathered

	sources := o.retriever.Search(ctx, message, sctx)
	if sources == nil {
		sources = []model.SourceDocument{}
	}
	state = StateRetrieved

	content := o.generate(ctx, turnID, message, intent, bundle, sources)
	state = StateGenerated

	outVerdict := o.guard.ValidateResponse(content)
	if !outVerdict.Safe {
		state = StateBlocked
		riskLevel = string(outVerdict.RiskLevel)
		o.log.Warn("output blocked",
			zap.String("turn_id", turnID),
			zap.String("risk_level", riskLevel),
			zap.Strings("rule_ids", outVerdict.MatchedRuleIDs),
			zap.Error(fmt.Errorf("%w: %s", ErrOutputRejected, outVerdict.Reason)))
		return &model.ChatResponse{
			Content: outputBlockedMessage,
			Sources: []model.SourceDocument{},
			Metadata: model.ResponseMetadata{
				RiskLevel:  string(outVerdict.RiskLevel),
				Disclaimer: disclaimerFor(intent.Kind),
			},
		}
	}
	state = StateOutputChecked

	resp = &model.ChatResponse{
		Content: content,
		Sources: sources,
		Metadata: model.ResponseMetadata{
			Confidence: intent.Confidence,
			Disclaimer: disclaimerFor(intent.Kind),
		},
	}
	if bundle != nil && bundle.AIInsights != nil && bundle.AIInsights.Risk != nil {
		resp.Metadata.RiskLevel = bundle.AIInsights.Risk.Level
	}
	state = StateDelivered
	return resp
}

// generate calls the model with the assembled prompt, substituting the
// intent's fixed template answer on any failure or empty output.
func (o *Orchestrator) generate(
	ctx context.Context,
	turnID, message string,
	intent model.Intent,
	bundle *model.ContextBundle,
	sources []model.SourceDocument,
) string {
	if o.llm != nil {
		prompt := buildGenerationPrompt(intent, bundle, sources)
		text, err := o.llm.Complete(ctx, prompt, message)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		o.log.Warn("generation failed, using template response",
			zap.String("turn_id", turnID),
			zap.String("intent", string(intent.Kind)),
			zap.Error(err))
	}
	return fallbackResponseFor(intent.Kind)
}

func (o *Orchestrator) blockedInputResponse(verdict safety.Verdict) *model.ChatResponse {
	return &model.ChatResponse{
		Content: inputBlockedPrefix + verdict.Reason + ".",
		Sources: []model.SourceDocument{},
		Metadata: model.ResponseMetadata{
			RiskLevel:  string(verdict.RiskLevel),
			Disclaimer: disclaimerFor(model.IntentGeneralQuestion),
		},
	}
}

func (o *Orchestrator) erroredResponse() *model.ChatResponse {
	return &model.ChatResponse{
		Content: erroredMessage,
		Sources: []model.SourceDocument{},
		Metadata: model.ResponseMetadata{
			Disclaimer: disclaimerFor(model.IntentGeneralQuestion),
		},
	}
}

// recordTurn publishes the audit event for a finished turn. The turn is
// already complete at this point, so a fresh bounded context is used instead
// of the (possibly cancelled) request context.
func (o *Orchestrator) recordTurn(
	turnID string,
	sctx model.SessionContext,
	intent model.Intent,
	state TurnState,
	riskLevel string,
	elapsed time.Duration,
) {
	if o.audit == nil {
		return
	}
	event := model.AuditEvent{
		TurnID:     turnID,
		UserID:     sctx.UserID,
		SessionID:  sctx.SessionID,
		Intent:     string(intent.Kind),
		State:      string(state),
		Blocked:    state == StateBlocked,
		RiskLevel:  riskLevel,
		DurationMs: elapsed.Milliseconds(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := o.audit.Publish(ctx, event); err != nil {
		o.log.Warn("audit publish failed",
			zap.String("turn_id", turnID),
			zap.Error(err))
	}
}
