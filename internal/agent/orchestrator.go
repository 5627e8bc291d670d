package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rasil-ai/support-agent-platform/internal/llm"
	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
	"github.com/rasil-ai/support-agent-platform/pkg/metrics"
)

const defaultHistoryTurns = 10

// Orchestrator is the top-level state machine invoked once per inbound
// customer message: silence gate, direct-handoff gate, generation, at most
// one tool round, quality check, bookkeeping. Process never returns an error
// and never panics out; every failure resolves to a well-formed result.
type Orchestrator struct {
	client       llm.Client // nil when no provider is configured
	prompt       *PromptBuilder
	tools        *ToolExecutor
	quality      *QualityAnalyzer
	handoff      *HandoffController
	messages     store.MessageStore
	historyTurns int
	log          *logger.Logger
}

// NewOrchestrator wires the engine components together. A nil client routes
// every message to the ai_not_configured fallback.
func NewOrchestrator(
	client llm.Client,
	prompt *PromptBuilder,
	tools *ToolExecutor,
	quality *QualityAnalyzer,
	handoff *HandoffController,
	messages store.MessageStore,
	historyTurns int,
	log *logger.Logger,
) *Orchestrator {
	if historyTurns <= 0 {
		historyTurns = defaultHistoryTurns
	}
	return &Orchestrator{
		client:       client,
		prompt:       prompt,
		tools:        tools,
		quality:      quality,
		handoff:      handoff,
		messages:     messages,
		historyTurns: historyTurns,
		log:          log,
	}
}

// Process runs one orchestration cycle for an inbound message.
func (o *Orchestrator) Process(ctx context.Context, messageText string, conv *model.Conversation, settings model.AgentSettings) (result *model.OrchestrationResult) {
	start := time.Now()
	outcome := "replied"
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("orchestration panicked",
				zap.String("conversation_id", conv.ID), zap.Any("panic", r))
			result = o.failure(ctx, conv, settings, model.HandoffReasonAIError)
			outcome = "panic"
		}
		metrics.RecordOrchestration(conv.TenantID, outcome, time.Since(start).Seconds())
	}()

	// Defensive re-check; the dispatcher already filters disabled agents.
	if !settings.Enabled {
		outcome = "disabled"
		return &model.OrchestrationResult{}
	}

	// Silence gate.
	switch o.handoff.State(conv, settings) {
	case StateHandedOffSilent:
		metrics.SilencedTotal.WithLabelValues(conv.TenantID).Inc()
		outcome = "silenced"
		return &model.OrchestrationResult{Intent: model.IntentSilenced}
	case StateHandedOffResumable:
		if err := o.handoff.ExpireSilenceIfDue(ctx, conv, settings); err != nil {
			o.log.Error("failed to expire silence window",
				zap.String("conversation_id", conv.ID), zap.Error(err))
			outcome = "error"
			return o.failure(ctx, conv, settings, model.HandoffReasonAIError)
		}
		// The same message continues through the pipeline.
	}

	// Direct handoff gate: explicit keyword or exhausted failure budget.
	if ok, reason := o.handoff.CheckDirectHandoff(messageText, conv, settings); ok {
		if err := o.handoff.TriggerHandoff(ctx, conv, settings, reason); err != nil {
			o.log.Error("direct handoff failed",
				zap.String("conversation_id", conv.ID), zap.Error(err))
			outcome = "error"
			return o.failure(ctx, conv, settings, model.HandoffReasonAIError)
		}
		outcome = "direct_handoff"
		return &model.OrchestrationResult{
			Reply:         settings.HandoffMessage,
			Confidence:    1,
			ShouldHandoff: true,
			HandoffReason: reason,
		}
	}

	if o.client == nil {
		outcome = "not_configured"
		return o.failure(ctx, conv, settings, model.HandoffReasonNotConfigured)
	}

	// Generation: system prompt, bounded history, first completion with the
	// two-tool registry.
	system := o.prompt.Build(ctx, settings, conv)
	history := o.history(ctx, conv, messageText)
	turns := append(history, llm.ChatMessage{Role: "user", Content: messageText})

	first, err := o.complete(ctx, settings, &llm.CompletionRequest{
		Model:       settings.Model,
		System:      system,
		Messages:    turns,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
		Tools:       o.tools.Definitions(),
	})
	if err != nil {
		o.log.Error("model completion failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		outcome = "error"
		return o.failure(ctx, conv, settings, model.HandoffReasonAIError)
	}

	finalReply := first.Content
	var toolsUsed []string

	// Tool round: at most one.
	if len(first.ToolCalls) > 0 {
		for _, call := range first.ToolCalls {
			toolsUsed = append(toolsUsed, call.Name)
		}

		switch out := o.tools.Execute(ctx, first.ToolCalls, conv, settings).(type) {
		case Terminate:
			// The handoff tool fired: no follow-up completion.
			outcome = "tool_handoff"
			return &model.OrchestrationResult{
				Reply:         out.Reply,
				Confidence:    1,
				ShouldHandoff: true,
				HandoffReason: out.Reason,
				ToolsUsed:     toolsUsed,
			}
		case Continue:
			followUp := append(turns, llm.ChatMessage{
				Role:      "assistant",
				Content:   first.Content,
				ToolCalls: first.ToolCalls,
			})
			for _, res := range out.Results {
				followUp = append(followUp, llm.ChatMessage{
					Role:       "tool",
					Content:    res.Result,
					ToolCallID: res.ToolCallID,
				})
			}

			second, err := o.complete(ctx, settings, &llm.CompletionRequest{
				Model:       settings.Model,
				System:      system,
				Messages:    followUp,
				MaxTokens:   settings.MaxTokens,
				Temperature: settings.Temperature,
			})
			if err != nil {
				o.log.Error("follow-up completion failed",
					zap.String("conversation_id", conv.ID), zap.Error(err))
				outcome = "error"
				return o.failure(ctx, conv, settings, model.HandoffReasonAIError)
			}
			if second.Content != "" {
				finalReply = second.Content
			}
		}
	}

	// Quality and bookkeeping.
	report := o.quality.Analyze(finalReply, messageText)
	if err := o.handoff.RecordOutcome(ctx, conv, report.Confidence); err != nil {
		o.log.Error("failed to record outcome",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	if report.ShouldHandoff {
		if err := o.handoff.TriggerHandoff(ctx, conv, settings, report.HandoffReason); err != nil {
			o.log.Error("low-confidence handoff failed",
				zap.String("conversation_id", conv.ID), zap.Error(err))
		}
		outcome = "low_confidence_handoff"
	}

	return &model.OrchestrationResult{
		Reply:         finalReply,
		Confidence:    report.Confidence,
		Intent:        report.Intent,
		ShouldHandoff: report.ShouldHandoff,
		HandoffReason: report.HandoffReason,
		ToolsUsed:     toolsUsed,
	}
}

// history maps the last stored turns to model messages, oldest first. The
// triggering message is already persisted by the ingestion pipeline, so it
// is stripped from the tail to avoid sending it twice. A fetch failure
// degrades to an empty history.
func (o *Orchestrator) history(ctx context.Context, conv *model.Conversation, messageText string) []llm.ChatMessage {
	msgs, err := o.messages.Recent(ctx, conv.ID, o.historyTurns+1)
	if err != nil {
		o.log.Warn("history fetch failed, proceeding without history",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		return nil
	}

	if n := len(msgs); n > 0 && msgs[n-1].Direction == model.DirectionIn && msgs[n-1].Content == messageText {
		msgs = msgs[:n-1]
	}
	if len(msgs) > o.historyTurns {
		msgs = msgs[len(msgs)-o.historyTurns:]
	}

	history := make([]llm.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Direction == model.DirectionOut {
			role = "assistant"
		}
		history = append(history, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return history
}

func (o *Orchestrator) complete(ctx context.Context, settings model.AgentSettings, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := o.client.Complete(ctx, req)
	if err != nil {
		metrics.RecordCompletion(settings.Model, "error", 0, 0, 0)
		return nil, err
	}
	metrics.RecordCompletion(resp.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)
	return resp, nil
}

// failure converts any unrecoverable condition into the merchant-configured
// fallback reply and escalates the conversation to a human.
func (o *Orchestrator) failure(ctx context.Context, conv *model.Conversation, settings model.AgentSettings, reason model.HandoffReason) *model.OrchestrationResult {
	if err := o.handoff.TriggerHandoff(ctx, conv, settings, reason); err != nil {
		o.log.Error("failure-path handoff did not persist",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	return &model.OrchestrationResult{
		Reply:         settings.FallbackMessage,
		Confidence:    0,
		ShouldHandoff: true,
		HandoffReason: reason,
	}
}
