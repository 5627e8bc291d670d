package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/rasil-ai/support-agent-platform/internal/agent"
	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

// InboundEnvelope is what the ingestion pipeline publishes once a raw
// channel webhook has been persisted as a message.
type InboundEnvelope struct {
	Message         model.Message `json:"message"`
	Channel         model.Channel `json:"channel"`
	NewConversation bool          `json:"new_conversation"`
}

// Consumer subscribes the inbound subjects and feeds the dispatcher.
type Consumer struct {
	client        *Client
	conversations store.ConversationStore
	dispatcher    *agent.Dispatcher
	log           *logger.Logger

	consumeCtx jetstream.ConsumeContext
}

// NewConsumer creates an inbound consumer.
func NewConsumer(client *Client, conversations store.ConversationStore, dispatcher *agent.Dispatcher, log *logger.Logger) *Consumer {
	return &Consumer{
		client:        client,
		conversations: conversations,
		dispatcher:    dispatcher,
		log:           log,
	}
}

// Start creates the durable consumer and begins dispatching inbound events.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       "agent-engine",
		FilterSubject: fmt.Sprintf("%s.*.*.inbound", SubjectPrefix),
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
	})
	if err != nil {
		return fmt.Errorf("failed to create inbound consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.consumeCtx = consumeCtx
	return nil
}

// Stop drains the consumer.
func (c *Consumer) Stop() {
	if c.consumeCtx != nil {
		c.consumeCtx.Stop()
	}
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		c.log.Error("invalid inbound envelope, dropping", zap.Error(err))
		msg.Ack() // poison message, do not redeliver
		return
	}

	conv, err := c.conversations.Get(ctx, envelope.Message.ConversationID)
	if err != nil {
		c.log.Error("failed to load conversation for inbound message",
			zap.String("conversation_id", envelope.Message.ConversationID), zap.Error(err))
		msg.Nak()
		return
	}

	// The dispatcher catches every downstream failure itself.
	c.dispatcher.OnInboundMessage(ctx, &envelope.Message, conv, &envelope.Channel, envelope.NewConversation)
	msg.Ack()
}
