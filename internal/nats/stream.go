package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

const (
	// StreamName is the name of the support traffic stream.
	StreamName = "SUPPORT"

	// SubjectPrefix is the prefix for all support subjects.
	SubjectPrefix = "support"
)

// Publisher publishes agent replies and handoff events to JetStream. It
// implements the engine's ReplySender and HandoffEventSink boundaries;
// channel delivery and employee notification consume these subjects
// downstream.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the support stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Agent replies, handoff events and inbound message events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// ReplySubject returns the subject agent replies are published on.
func ReplySubject(tenantID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.reply", SubjectPrefix, tenantID, conversationID)
}

// HandoffSubject returns the subject handoff events are published on.
func HandoffSubject(tenantID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.handoff", SubjectPrefix, tenantID, conversationID)
}

// InboundSubject returns the subject inbound message events arrive on.
func InboundSubject(tenantID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.inbound", SubjectPrefix, tenantID, conversationID)
}

// replyEnvelope is the reply payload published for channel delivery.
type replyEnvelope struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	TenantID       string              `json:"tenant_id"`
	Channel        model.ChannelType   `json:"channel"`
	ChannelRef     string              `json:"channel_ref"`
	Text           string              `json:"text"`
	Metadata       model.ReplyMetadata `json:"metadata"`
	CreatedAt      time.Time           `json:"created_at"`
}

// SendAgentReply publishes an agent reply for the channel transport to
// deliver.
func (p *Publisher) SendAgentReply(ctx context.Context, conv *model.Conversation, text string, meta model.ReplyMetadata) error {
	envelope := replyEnvelope{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		TenantID:       conv.TenantID,
		Channel:        conv.Channel,
		ChannelRef:     conv.ChannelRef,
		Text:           text,
		Metadata:       meta,
		CreatedAt:      time.Now(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	_, err = p.client.JetStream().Publish(ctx, ReplySubject(conv.TenantID, conv.ID), data)
	if err != nil {
		return fmt.Errorf("failed to publish reply: %w", err)
	}
	return nil
}

// EmitHandoffEvent publishes a handoff event for notification fan-out.
func (p *Publisher) EmitHandoffEvent(ctx context.Context, event *model.HandoffEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff event: %w", err)
	}

	_, err = p.client.JetStream().Publish(ctx, HandoffSubject(event.TenantID, event.ConversationID), data)
	if err != nil {
		return fmt.Errorf("failed to publish handoff event: %w", err)
	}
	return nil
}
