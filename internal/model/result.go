package model

// Intent is the coarse classification of a customer message.
type Intent string

const (
	IntentOrderInquiry   Intent = "order_inquiry"
	IntentProductInquiry Intent = "product_inquiry"
	IntentComplaint      Intent = "complaint"
	IntentGreeting       Intent = "greeting"
	IntentSilenced       Intent = "silenced"
)

// OrchestrationResult is the only value returned from an orchestration
// cycle. It is never persisted directly.
type OrchestrationResult struct {
	Reply         string        `json:"reply"`
	Confidence    float64       `json:"confidence"`
	Intent        Intent        `json:"intent,omitempty"`
	ShouldHandoff bool          `json:"should_handoff"`
	HandoffReason HandoffReason `json:"handoff_reason,omitempty"`
	ToolsUsed     []string      `json:"tools_used,omitempty"`
}
