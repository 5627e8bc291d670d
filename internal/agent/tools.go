package agent

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rasil-ai/support-agent-platform/internal/llm"
	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
	"github.com/rasil-ai/support-agent-platform/pkg/metrics"
)

// Tool names advertised to the model. These two are the whole registry.
const (
	ToolGetOrderStatus    = "get_order_status"
	ToolRequestHumanAgent = "request_human_agent"
)

// ToolResult is one executed tool call's payload, fed back to the model.
type ToolResult struct {
	ToolCallID string
	Name       string
	Result     string // JSON
}

// ToolOutcome is the discriminated result of executing a tool batch. It is
// either Continue (feed results back for a follow-up completion) or
// Terminate (the handoff tool fired; reply immediately, no second round).
type ToolOutcome interface {
	toolOutcome()
}

// Continue carries tool results for the follow-up completion.
type Continue struct {
	Results []ToolResult
}

// Terminate short-circuits the cycle with a final reply.
type Terminate struct {
	Reply  string
	Reason model.HandoffReason
}

func (Continue) toolOutcome()  {}
func (Terminate) toolOutcome() {}

// ToolExecutor executes model-requested function calls against domain data.
type ToolExecutor struct {
	orders  store.OrderLookup
	handoff *HandoffController
	log     *logger.Logger
}

// NewToolExecutor creates an executor.
func NewToolExecutor(orders store.OrderLookup, handoff *HandoffController, log *logger.Logger) *ToolExecutor {
	return &ToolExecutor{orders: orders, handoff: handoff, log: log}
}

// Definitions returns the fixed two-entry tool registry.
func (e *ToolExecutor) Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolGetOrderStatus,
			Description: "Look up the status of a customer's order by its order number or reference.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"order_id": map[string]any{
						"type":        "string",
						"description": "The order number or reference the customer provided",
					},
				},
				"required": []string{"order_id"},
			},
		},
		{
			Name:        ToolRequestHumanAgent,
			Description: "Hand the conversation to a human support agent when the customer explicitly asks for one.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": map[string]any{
						"type":        "string",
						"description": "Why the customer needs a human agent",
					},
				},
			},
		},
	}
}

// Execute runs every call in the batch. A failing call surfaces as a
// structured error result for that call only. If request_human_agent fired
// anywhere in the batch the outcome is Terminate and no follow-up completion
// must be requested.
func (e *ToolExecutor) Execute(ctx context.Context, calls []llm.ToolCall, conv *model.Conversation, settings model.AgentSettings) ToolOutcome {
	results := make([]ToolResult, 0, len(calls))
	var terminate *Terminate

	for _, call := range calls {
		args := parseArguments(call.Arguments)

		var (
			payload map[string]any
			status  = "ok"
		)
		switch call.Name {
		case ToolGetOrderStatus:
			payload = e.getOrderStatus(ctx, args, conv, settings)
			if _, failed := payload["error"]; failed {
				status = "error"
			}
		case ToolRequestHumanAgent:
			reason := model.HandoffReason(stringArg(args, "reason"))
			if reason == "" {
				reason = model.HandoffReasonCustomerRequest
			}
			if err := e.handoff.TriggerHandoff(ctx, conv, settings, reason); err != nil {
				e.log.Error("handoff tool failed",
					zap.String("conversation_id", conv.ID), zap.Error(err))
				payload = map[string]any{"error": err.Error()}
				status = "error"
			} else {
				payload = map[string]any{"success": true, "handed_off": true}
				terminate = &Terminate{Reply: settings.HandoffMessage, Reason: reason}
			}
		default:
			payload = map[string]any{"error": "Unknown function"}
			status = "error"
		}

		metrics.ToolCallsTotal.WithLabelValues(call.Name, status).Inc()
		results = append(results, ToolResult{
			ToolCallID: call.ID,
			Name:       call.Name,
			Result:     encodePayload(payload),
		})
	}

	if terminate != nil {
		return *terminate
	}
	return Continue{Results: results}
}

func (e *ToolExecutor) getOrderStatus(ctx context.Context, args map[string]any, conv *model.Conversation, settings model.AgentSettings) map[string]any {
	ref := stringArg(args, "order_id")
	if ref == "" {
		return map[string]any{"error": "order_id is required"}
	}

	order, err := e.orders.Find(ctx, conv.TenantID, conv.StoreID, ref)
	if err == store.ErrOrderNotFound {
		return map[string]any{"found": false}
	}
	if err != nil {
		e.log.Error("order lookup failed",
			zap.String("conversation_id", conv.ID),
			zap.String("order_ref", ref), zap.Error(err))
		return map[string]any{"error": err.Error()}
	}

	return map[string]any{
		"found":        true,
		"order_id":     order.ExternalID,
		"status":       orderStatusText(order.Status, settings.Language),
		"status_code":  string(order.Status),
		"total":        order.Total,
		"currency":     order.Currency,
		"item_count":   order.ItemCount,
		"has_shipping": order.HasShipping,
	}
}

var orderStatusTexts = map[model.OrderStatus]map[string]string{
	model.OrderPending:   {"ar": "قيد المراجعة", "en": "pending review"},
	model.OrderConfirmed: {"ar": "تم تأكيد الطلب", "en": "confirmed"},
	model.OrderShipped:   {"ar": "تم شحن الطلب", "en": "shipped"},
	model.OrderDelivered: {"ar": "تم توصيل الطلب", "en": "delivered"},
	model.OrderCancelled: {"ar": "تم إلغاء الطلب", "en": "cancelled"},
	model.OrderRefunded:  {"ar": "تم استرجاع المبلغ", "en": "refunded"},
}

func orderStatusText(status model.OrderStatus, language string) string {
	lang := "ar"
	if language == "en" {
		lang = "en"
	}
	if texts, ok := orderStatusTexts[status]; ok {
		return texts[lang]
	}
	return string(status)
}

// parseArguments decodes the model-supplied JSON arguments; invalid JSON is
// treated as empty arguments, not an error.
func parseArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func encodePayload(payload map[string]any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return `{"error":"failed to encode tool result"}`
	}
	return string(data)
}
