package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasil-ai/support-agent-platform/internal/llm"
	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

func newTestExecutor(sink *sinkFake) (*ToolExecutor, *store.Memory) {
	mem := store.NewMemory()
	log := logger.NewNop()
	handoff := NewHandoffController(mem, sink, log)
	return NewToolExecutor(mem, handoff, log), mem
}

func decodeResult(t *testing.T, res ToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Result), &payload))
	return payload
}

func TestDefinitionsRegistry(t *testing.T) {
	e, _ := newTestExecutor(&sinkFake{})

	defs := e.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, ToolGetOrderStatus, defs[0].Name)
	assert.Equal(t, ToolRequestHumanAgent, defs[1].Name)
}

func TestExecuteOrderStatusFound(t *testing.T) {
	e, mem := newTestExecutor(&sinkFake{})
	mem.PutOrder(model.Order{
		TenantID:   "tenant-1",
		StoreID:    "store-1",
		ExternalID: "1042",
		Status:     model.OrderShipped,
		Total:      249.5,
		Currency:   "SAR",
		ItemCount:  2,
	})

	out := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: ToolGetOrderStatus, Arguments: `{"order_id":"1042"}`},
	}, testConversation(), testSettings())

	cont, ok := out.(Continue)
	require.True(t, ok)
	require.Len(t, cont.Results, 1)

	payload := decodeResult(t, cont.Results[0])
	assert.Equal(t, true, payload["found"])
	assert.Equal(t, "1042", payload["order_id"])
	assert.Equal(t, "تم شحن الطلب", payload["status"])
	assert.Equal(t, "shipped", payload["status_code"])
	assert.Equal(t, "SAR", payload["currency"])
}

func TestExecuteOrderStatusLocalizedEnglish(t *testing.T) {
	e, mem := newTestExecutor(&sinkFake{})
	mem.PutOrder(model.Order{TenantID: "tenant-1", ExternalID: "7", Status: model.OrderDelivered})

	settings := testSettings()
	settings.Language = "en"

	out := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: ToolGetOrderStatus, Arguments: `{"order_id":"7"}`},
	}, testConversation(), settings)

	cont := out.(Continue)
	payload := decodeResult(t, cont.Results[0])
	assert.Equal(t, "delivered", payload["status"])
}

func TestExecuteOrderStatusNotFound(t *testing.T) {
	e, _ := newTestExecutor(&sinkFake{})

	out := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: ToolGetOrderStatus, Arguments: `{"order_id":"missing"}`},
	}, testConversation(), testSettings())

	cont := out.(Continue)
	payload := decodeResult(t, cont.Results[0])
	assert.Equal(t, false, payload["found"])
	assert.NotContains(t, payload, "error")
}

func TestExecuteInvalidArguments(t *testing.T) {
	e, _ := newTestExecutor(&sinkFake{})

	// Malformed JSON degrades to empty arguments, which the order tool
	// rejects with a structured error result, not a dropped call.
	out := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: ToolGetOrderStatus, Arguments: `{"order_id":`},
	}, testConversation(), testSettings())

	cont := out.(Continue)
	require.Len(t, cont.Results, 1)
	payload := decodeResult(t, cont.Results[0])
	assert.Equal(t, "order_id is required", payload["error"])
}

func TestExecuteUnknownTool(t *testing.T) {
	e, _ := newTestExecutor(&sinkFake{})

	out := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: "delete_everything", Arguments: `{}`},
	}, testConversation(), testSettings())

	cont := out.(Continue)
	payload := decodeResult(t, cont.Results[0])
	assert.Equal(t, "Unknown function", payload["error"])
}

func TestExecuteHumanAgentTerminates(t *testing.T) {
	sink := &sinkFake{}
	e, mem := newTestExecutor(sink)
	conv := testConversation()
	require.NoError(t, mem.Save(context.Background(), conv))

	settings := testSettings()
	out := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: ToolRequestHumanAgent, Arguments: `{"reason":"customer_request"}`},
	}, conv, settings)

	term, ok := out.(Terminate)
	require.True(t, ok)
	assert.Equal(t, settings.HandoffMessage, term.Reply)
	assert.Equal(t, model.HandoffReasonCustomerRequest, term.Reason)

	assert.Equal(t, model.HandlerHuman, conv.Handler)
	assert.Len(t, sink.events, 1)
}

func TestExecuteBatchRunsEveryCallBeforeTerminating(t *testing.T) {
	e, mem := newTestExecutor(&sinkFake{})
	conv := testConversation()
	require.NoError(t, mem.Save(context.Background(), conv))
	mem.PutOrder(model.Order{TenantID: "tenant-1", ExternalID: "9", Status: model.OrderPending})

	out := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: ToolRequestHumanAgent, Arguments: `{}`},
		{ID: "c2", Name: ToolGetOrderStatus, Arguments: `{"order_id":"9"}`},
	}, conv, testSettings())

	// The handoff fired first in the batch; the order lookup still ran, and
	// the outcome is still Terminate.
	term, ok := out.(Terminate)
	require.True(t, ok)
	assert.Equal(t, model.HandoffReasonCustomerRequest, term.Reason)
}
