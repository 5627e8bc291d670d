package model

import (
	"time"
)

// Direction marks whether a message came from the customer or went out.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// ContentType is the payload type of a channel message.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeAudio ContentType = "audio"
	ContentTypeFile  ContentType = "file"
)

// Sender identifies who produced an outbound message.
type Sender string

const (
	SenderAgent    Sender = "agent"
	SenderEmployee Sender = "employee"
	SenderCustomer Sender = "customer"
)

// Message is a single message on a conversation, inbound or outbound.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	TenantID       string      `json:"tenant_id"`
	Direction      Direction   `json:"direction"`
	Sender         Sender      `json:"sender,omitempty"`
	ContentType    ContentType `json:"content_type"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ReplyMetadata annotates an agent reply at the outbound boundary.
type ReplyMetadata struct {
	Intent           Intent   `json:"intent,omitempty"`
	Confidence       float64  `json:"confidence"`
	ToolsUsed        []string `json:"tools_used,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}
