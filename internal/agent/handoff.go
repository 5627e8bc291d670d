package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
	"github.com/rasil-ai/support-agent-platform/pkg/metrics"
)

// HandoffEventSink receives handoff events. Notification fan-out to
// employees happens outside this engine.
type HandoffEventSink interface {
	EmitHandoffEvent(ctx context.Context, event *model.HandoffEvent) error
}

// AgentState is the explicit ownership state of a conversation as seen by
// the engine at a point in time.
type AgentState int

const (
	// StateAIActive: the automated agent owns replies.
	StateAIActive AgentState = iota
	// StateHandedOffSilent: a human owns replies and the agent must stay quiet.
	StateHandedOffSilent
	// StateHandedOffResumable: a human owns replies but the silence window
	// has elapsed (or was never recorded); the agent may take the
	// conversation back on the next message.
	StateHandedOffResumable
)

// defaultHandoffKeywords trigger an immediate customer-requested handoff.
// Matched case-insensitively as substrings, unioned with per-tenant keywords.
var defaultHandoffKeywords = []string{
	"أريد موظف",
	"اريد موظف",
	"ابغى موظف",
	"أبغى موظف",
	"كلمني موظف",
	"موظف خدمة",
	"تحدث مع موظف",
	"خدمة العملاء",
	"human agent",
	"real person",
	"speak to someone",
	"talk to a human",
	"customer service",
	"representative",
}

// HandoffController owns the AI/human transition, the post-handoff silence
// window and the failed-attempt counters. It is the only writer of
// Conversation.Handler and the orchestration sub-record.
type HandoffController struct {
	conversations store.ConversationStore
	events        HandoffEventSink
	now           func() time.Time
	log           *logger.Logger
}

// NewHandoffController creates a controller.
func NewHandoffController(conversations store.ConversationStore, events HandoffEventSink, log *logger.Logger) *HandoffController {
	return &HandoffController{
		conversations: conversations,
		events:        events,
		now:           time.Now,
		log:           log,
	}
}

// State derives the explicit ownership state for a conversation.
func (c *HandoffController) State(conv *model.Conversation, settings model.AgentSettings) AgentState {
	if conv.Handler != model.HandlerHuman {
		return StateAIActive
	}
	if !settings.SilenceOnHandoff {
		// No silence window configured: the human keeps the conversation.
		return StateHandedOffSilent
	}
	handoffAt := conv.Orchestration.HandoffAt
	if handoffAt == nil {
		// No recorded handoff time; fail open toward resuming the agent.
		return StateHandedOffResumable
	}
	if c.now().Sub(*handoffAt) < settings.SilenceDuration {
		return StateHandedOffSilent
	}
	return StateHandedOffResumable
}

// IsSilenced reports whether the agent must stay quiet for this conversation.
func (c *HandoffController) IsSilenced(conv *model.Conversation, settings model.AgentSettings) bool {
	if !settings.SilenceOnHandoff || conv.Handler != model.HandlerHuman {
		return false
	}
	handoffAt := conv.Orchestration.HandoffAt
	if handoffAt == nil {
		return false
	}
	return c.now().Sub(*handoffAt) < settings.SilenceDuration
}

// ExpireSilenceIfDue flips the conversation back to the agent when the
// silence window has elapsed. The triggering message keeps processing; it is
// not dropped.
func (c *HandoffController) ExpireSilenceIfDue(ctx context.Context, conv *model.Conversation, settings model.AgentSettings) error {
	if c.State(conv, settings) != StateHandedOffResumable {
		return nil
	}

	conv.Handler = model.HandlerAI
	conv.Orchestration.HandoffAt = nil
	conv.Orchestration.HandoffReason = ""

	if err := c.conversations.Save(ctx, conv); err != nil {
		return fmt.Errorf("saving conversation on silence expiry: %w", err)
	}

	c.log.Info("silence window expired, agent resumed",
		zap.String("conversation_id", conv.ID),
		zap.String("tenant_id", conv.TenantID))
	return nil
}

// TriggerHandoff moves the conversation to a human. State is persisted
// before the handoff event is emitted, so a crash in between can at worst
// re-emit the event, never desynchronize the handler.
func (c *HandoffController) TriggerHandoff(ctx context.Context, conv *model.Conversation, settings model.AgentSettings, reason model.HandoffReason) error {
	now := c.now()

	conv.Handler = model.HandlerHuman
	conv.Orchestration.HandoffAt = &now
	conv.Orchestration.HandoffReason = reason
	conv.Orchestration.FailedAttempts = 0

	if err := c.conversations.Save(ctx, conv); err != nil {
		return fmt.Errorf("saving conversation on handoff: %w", err)
	}

	metrics.HandoffsTotal.WithLabelValues(conv.TenantID, string(reason)).Inc()
	c.log.Info("conversation handed off",
		zap.String("conversation_id", conv.ID),
		zap.String("tenant_id", conv.TenantID),
		zap.String("reason", string(reason)))

	event := &model.HandoffEvent{
		ConversationID: conv.ID,
		TenantID:       conv.TenantID,
		CustomerID:     conv.CustomerID,
		Reason:         reason,
		HandoffAt:      now,
		NotifyTargets:  settings.NotifyTargetsFor(),
	}
	if err := c.events.EmitHandoffEvent(ctx, event); err != nil {
		// At-least-once delivery; the handoff itself already stuck.
		c.log.Error("failed to emit handoff event",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	return nil
}

// RecordOutcome updates the failed-attempt counter from a reply's
// confidence. Confidence below 0.5 counts as a failure, 0.7 and above
// resets the counter, and the band in between changes nothing to avoid
// oscillation around the threshold.
func (c *HandoffController) RecordOutcome(ctx context.Context, conv *model.Conversation, confidence float64) error {
	switch {
	case confidence < 0.5:
		conv.Orchestration.FailedAttempts++
	case confidence >= 0.7:
		if conv.Orchestration.FailedAttempts == 0 {
			return nil
		}
		conv.Orchestration.FailedAttempts = 0
	default:
		return nil
	}

	if err := c.conversations.Save(ctx, conv); err != nil {
		return fmt.Errorf("saving conversation outcome: %w", err)
	}
	return nil
}

// CheckDirectHandoff decides whether the message itself (or the accumulated
// failure count) demands a handoff before any model call.
func (c *HandoffController) CheckDirectHandoff(message string, conv *model.Conversation, settings model.AgentSettings) (bool, model.HandoffReason) {
	lowered := strings.ToLower(message)
	for _, kw := range defaultHandoffKeywords {
		if strings.Contains(lowered, kw) {
			return true, model.HandoffReasonCustomerRequest
		}
	}
	for _, kw := range settings.HandoffKeywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			return true, model.HandoffReasonCustomerRequest
		}
	}

	if settings.AutoHandoff {
		threshold := settings.HandoffAfterFailures
		if threshold < 1 {
			threshold = 1
		}
		if conv.Orchestration.FailedAttempts >= threshold {
			return true, model.HandoffReasonMaxFailures
		}
	}
	return false, ""
}
