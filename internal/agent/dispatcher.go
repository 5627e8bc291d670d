package agent

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
	"github.com/rasil-ai/support-agent-platform/pkg/metrics"
)

// ReplySender delivers an agent reply over the conversation's channel.
// Channel transport (WhatsApp, Instagram, Telegram, Discord) is outside this
// engine.
type ReplySender interface {
	SendAgentReply(ctx context.Context, conv *model.Conversation, text string, meta model.ReplyMetadata) error
}

// shortGreetingMaxRunes bounds what still counts as a bare greeting.
const shortGreetingMaxRunes = 30

// greetings is the fixed multilingual list a short message is matched
// against when a welcome was already sent.
var greetings = []string{
	"hi", "hello", "hey", "hola", "good morning", "good evening",
	"مرحبا", "مرحباً", "هلا", "أهلا", "اهلا", "أهلاً",
	"السلام عليكم", "سلام", "صباح الخير", "مساء الخير",
}

// Dispatcher listens for stored inbound messages, filters the ones eligible
// for automated handling and runs them through the orchestrator. It never
// propagates a failure back into the ingestion pipeline.
type Dispatcher struct {
	settings      store.SettingsSource
	conversations store.ConversationStore
	orchestrator  *Orchestrator
	sender        ReplySender
	locks         *conversationLocks
	enabled       bool
	log           *logger.Logger
}

// NewDispatcher creates a dispatcher. enabled is the process-wide agent
// feature flag.
func NewDispatcher(
	settings store.SettingsSource,
	conversations store.ConversationStore,
	orchestrator *Orchestrator,
	sender ReplySender,
	enabled bool,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		settings:      settings,
		conversations: conversations,
		orchestrator:  orchestrator,
		sender:        sender,
		locks:         newConversationLocks(),
		enabled:       enabled,
		log:           log,
	}
}

// OnInboundMessage handles one stored inbound message. Every failure is
// logged and swallowed: a broken automated reply must never abort message
// persistence or the inbound pipeline.
func (d *Dispatcher) OnInboundMessage(ctx context.Context, msg *model.Message, conv *model.Conversation, channel *model.Channel, isNewConversation bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("inbound dispatch panicked",
				zap.String("conversation_id", conv.ID), zap.Any("panic", r))
		}
	}()

	if !d.enabled {
		return
	}

	log := d.log.WithConversation(conv.TenantID, conv.ID)

	// Echo-loop guard: only customer messages are handled.
	if msg.Direction != model.DirectionIn {
		return
	}

	// A human owns the conversation and no handoff timestamp exists that
	// could ever expire; nothing for the agent to do.
	if conv.Handler != model.HandlerAI && conv.Orchestration.HandoffAt == nil {
		return
	}

	if msg.ContentType != model.ContentTypeText {
		return
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return
	}

	settings, err := d.settings.AgentSettings(ctx, channel.TenantID, channel.StoreID)
	if err != nil {
		if err != store.ErrSettingsNotFound {
			log.Error("failed to load agent settings", zap.Error(err))
		}
		return
	}
	if !settings.Enabled {
		return
	}

	// Human-owned with the silence feature off: the window can never expire,
	// so the agent stays out of the conversation.
	if conv.Handler != model.HandlerAI && !settings.SilenceOnHandoff {
		return
	}

	release := d.locks.acquire(conv.ID)
	defer release()

	if isNewConversation && settings.WelcomeMessage != "" && !conv.WelcomeSent {
		d.sendReply(ctx, log, conv, settings.WelcomeMessage, model.ReplyMetadata{
			Intent:     model.IntentGreeting,
			Confidence: 1,
		})
		conv.WelcomeSent = true
		if err := d.conversations.Save(ctx, conv); err != nil {
			log.Error("failed to persist welcome flag", zap.Error(err))
		}
	}

	// The welcome already covers a bare greeting.
	if conv.WelcomeSent && isShortGreeting(text) {
		return
	}

	conv.MessageCount++

	start := time.Now()
	result := d.orchestrator.Process(ctx, text, conv, settings)

	if err := d.conversations.Save(ctx, conv); err != nil {
		log.Error("failed to persist conversation after cycle", zap.Error(err))
	}

	if result.Reply == "" {
		// Silenced or intentionally empty; nothing goes out.
		return
	}

	d.sendReply(ctx, log, conv, result.Reply, model.ReplyMetadata{
		Intent:           result.Intent,
		Confidence:       result.Confidence,
		ToolsUsed:        result.ToolsUsed,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

func (d *Dispatcher) sendReply(ctx context.Context, log *logger.Logger, conv *model.Conversation, text string, meta model.ReplyMetadata) {
	if err := d.sender.SendAgentReply(ctx, conv, text, meta); err != nil {
		log.Error("failed to send agent reply", zap.Error(err))
		return
	}
	metrics.RepliesTotal.WithLabelValues(conv.TenantID, string(meta.Intent)).Inc()
}

// isShortGreeting reports whether the message is a bare greeting.
func isShortGreeting(text string) bool {
	if utf8.RuneCountInString(text) >= shortGreetingMaxRunes {
		return false
	}
	lowered := strings.ToLower(text)
	for _, g := range greetings {
		if strings.Contains(lowered, g) {
			return true
		}
	}
	return false
}
