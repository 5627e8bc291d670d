// Package model defines data structures for the support agent platform.
package model

import (
	"time"
)

// Handler identifies which actor currently owns replies for a conversation.
type Handler string

const (
	HandlerAI    Handler = "ai"
	HandlerHuman Handler = "human"
)

// ChannelType is the messaging channel a conversation lives on.
type ChannelType string

const (
	ChannelWhatsApp  ChannelType = "whatsapp"
	ChannelInstagram ChannelType = "instagram"
	ChannelTelegram  ChannelType = "telegram"
	ChannelDiscord   ChannelType = "discord"
)

// HandoffReason is the reason code recorded when a conversation moves to a human.
type HandoffReason string

const (
	HandoffReasonCustomerRequest HandoffReason = "customer_request"
	HandoffReasonMaxFailures     HandoffReason = "max_failures"
	HandoffReasonLowConfidence   HandoffReason = "low_confidence"
	HandoffReasonAIError         HandoffReason = "ai_error"
	HandoffReasonNotConfigured   HandoffReason = "ai_not_configured"
	HandoffReasonManual          HandoffReason = "manual"
)

// OrchestrationState is the engine's side-channel of handoff metadata,
// persisted alongside the conversation. Counters and the handler flag are
// mutated only through the handoff controller.
type OrchestrationState struct {
	FailedAttempts int           `json:"failed_attempts"`
	HandoffAt      *time.Time    `json:"handoff_at,omitempty"`
	HandoffReason  HandoffReason `json:"handoff_reason,omitempty"`
}

// Conversation represents a customer-support conversation thread.
type Conversation struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenant_id"`
	StoreID      string      `json:"store_id,omitempty"`
	CustomerID   string      `json:"customer_id"`
	CustomerName string      `json:"customer_name,omitempty"`
	ChannelRef   string      `json:"channel_ref"`
	Channel      ChannelType `json:"channel"`

	Handler      Handler `json:"handler"`
	MessageCount int     `json:"message_count"`
	WelcomeSent  bool    `json:"welcome_sent"`

	Orchestration OrchestrationState `json:"orchestration"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Channel describes the channel binding an inbound message arrived on.
type Channel struct {
	ID       string      `json:"id"`
	TenantID string      `json:"tenant_id"`
	StoreID  string      `json:"store_id,omitempty"`
	Type     ChannelType `json:"type"`
}

// HandoffEvent is emitted when a conversation is handed to a human agent.
// Delivery to employees (email, chat push) happens outside this engine.
type HandoffEvent struct {
	ConversationID string        `json:"conversation_id"`
	TenantID       string        `json:"tenant_id"`
	CustomerID     string        `json:"customer_id"`
	Reason         HandoffReason `json:"reason"`
	HandoffAt      time.Time     `json:"handoff_at"`
	NotifyTargets  NotifyTargets `json:"notify_targets"`
}

// NotifyTargets lists who should be told about a handoff.
type NotifyTargets struct {
	EmployeeIDs []string `json:"employee_ids,omitempty"`
	Phones      []string `json:"phones,omitempty"`
	Emails      []string `json:"emails,omitempty"`
}
