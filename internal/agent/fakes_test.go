package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rasil-ai/support-agent-platform/internal/llm"
	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

// sinkFake records emitted handoff events. The optional onEmit hook observes
// store state at emit time.
type sinkFake struct {
	events []*model.HandoffEvent
	err    error
	onEmit func(event *model.HandoffEvent)
}

func (s *sinkFake) EmitHandoffEvent(ctx context.Context, event *model.HandoffEvent) error {
	if s.onEmit != nil {
		s.onEmit(event)
	}
	s.events = append(s.events, event)
	return s.err
}

// clientFake replays scripted completions in order and records every request.
type clientFake struct {
	responses []*llm.CompletionResponse
	requests  []*llm.CompletionRequest
	err       error
}

func (c *clientFake) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.requests) > len(c.responses) {
		return nil, errors.New("no scripted response left")
	}
	return c.responses[len(c.requests)-1], nil
}

func (c *clientFake) Name() string     { return "fake" }
func (c *clientFake) Models() []string { return []string{"fake-model"} }

func (c *clientFake) calls() int { return len(c.requests) }

// senderFake records outbound replies.
type senderFake struct {
	replies []string
	metas   []model.ReplyMetadata
	err     error
}

func (s *senderFake) SendAgentReply(ctx context.Context, conv *model.Conversation, text string, meta model.ReplyMetadata) error {
	if s.err != nil {
		return s.err
	}
	s.replies = append(s.replies, text)
	s.metas = append(s.metas, meta)
	return nil
}

// failingKnowledge always errors on fetch.
type failingKnowledge struct{}

func (failingKnowledge) ActiveEntries(ctx context.Context, tenantID string, limit int) ([]model.KnowledgeEntry, error) {
	return nil, errors.New("knowledge backend down")
}

func textReply(content string) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: content, Model: "fake-model"}
}

func toolReply(calls ...llm.ToolCall) *llm.CompletionResponse {
	return &llm.CompletionResponse{ToolCalls: calls, Model: "fake-model"}
}

func testConversation() *model.Conversation {
	return &model.Conversation{
		ID:         "conv-1",
		TenantID:   "tenant-1",
		StoreID:    "store-1",
		CustomerID: "cust-1",
		Channel:    model.ChannelWhatsApp,
		Handler:    model.HandlerAI,
		CreatedAt:  time.Now(),
	}
}

func testSettings() model.AgentSettings {
	s := model.DefaultSettings()
	s.StoreName = "متجر الاختبار"
	return s
}

// testEngine builds an orchestrator with the in-memory store and the given
// fakes. The controller clock is returned for manipulation.
func testEngine(client llm.Client, mem *store.Memory, sink *sinkFake) (*Orchestrator, *HandoffController) {
	log := logger.NewNop()
	handoff := NewHandoffController(mem, sink, log)
	knowledge := NewKnowledgeRetriever(mem, 0, 0, log)
	prompt := NewPromptBuilder(knowledge)
	tools := NewToolExecutor(mem, handoff, log)
	quality := NewQualityAnalyzer()
	orch := NewOrchestrator(client, prompt, tools, quality, handoff, mem, 10, log)
	return orch, handoff
}
