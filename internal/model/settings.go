package model

import (
	"time"
)

// SearchPriority controls which knowledge sources feed the prompt.
type SearchPriority string

const (
	SearchLibraryOnly         SearchPriority = "library_only"
	SearchLibraryThenProducts SearchPriority = "library_then_products"
	SearchProductsOnly        SearchPriority = "products_only"
)

// AgentSettings is the per-tenant/store agent configuration. It is read once
// at the start of an orchestration cycle and treated as immutable for the
// duration of that cycle.
type AgentSettings struct {
	Enabled     bool    `json:"enabled"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Language    string  `json:"language"`
	Tone        string  `json:"tone"`

	AutoHandoff          bool          `json:"auto_handoff"`
	HandoffAfterFailures int           `json:"handoff_after_failures"`
	HandoffKeywords      []string      `json:"handoff_keywords,omitempty"`
	SilenceOnHandoff     bool          `json:"silence_on_handoff"`
	SilenceDuration      time.Duration `json:"silence_duration"`

	SearchPriority SearchPriority `json:"search_priority"`

	// Store facts embedded into the prompt when present.
	StoreName        string `json:"store_name"`
	StoreDescription string `json:"store_description,omitempty"`
	WorkingHours     string `json:"working_hours,omitempty"`
	ReturnPolicy     string `json:"return_policy,omitempty"`
	ShippingInfo     string `json:"shipping_info,omitempty"`

	// Message templates.
	WelcomeMessage  string `json:"welcome_message,omitempty"`
	FallbackMessage string `json:"fallback_message"`
	HandoffMessage  string `json:"handoff_message"`

	// Handoff notification targets.
	NotifyEmployeeIDs []string `json:"notify_employee_ids,omitempty"`
	NotifyPhones      []string `json:"notify_phones,omitempty"`
	NotifyEmails      []string `json:"notify_emails,omitempty"`
}

// DefaultSettings returns the baseline agent configuration. The value is
// constructed fresh on every call; callers must not share a mutated copy.
func DefaultSettings() AgentSettings {
	return AgentSettings{
		Enabled:              true,
		Model:                "gpt-4o-mini",
		Temperature:          0.3,
		MaxTokens:            1024,
		Language:             "ar",
		Tone:                 "friendly",
		AutoHandoff:          true,
		HandoffAfterFailures: 3,
		SilenceOnHandoff:     true,
		SilenceDuration:      30 * time.Minute,
		SearchPriority:       SearchLibraryThenProducts,
		FallbackMessage:      "عذراً، لا أملك إجابة دقيقة على سؤالك. سيتواصل معك أحد موظفينا قريباً.",
		HandoffMessage:       "تم تحويلك إلى أحد موظفي خدمة العملاء، سيرد عليك في أقرب وقت.",
	}
}

// NotifyTargetsFor collects the notification targets configured for handoff.
func (s AgentSettings) NotifyTargetsFor() NotifyTargets {
	return NotifyTargets{
		EmployeeIDs: s.NotifyEmployeeIDs,
		Phones:      s.NotifyPhones,
		Emails:      s.NotifyEmails,
	}
}
