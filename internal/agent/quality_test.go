package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

func TestAnalyzeConfidentReply(t *testing.T) {
	a := NewQualityAnalyzer()

	report := a.Analyze("طلبك رقم 1234 تم شحنه اليوم.", "وين طلبي؟")

	assert.Equal(t, 0.85, report.Confidence)
	assert.False(t, report.ShouldHandoff)
	assert.Equal(t, model.IntentOrderInquiry, report.Intent)
}

func TestAnalyzeHedgedReply(t *testing.T) {
	a := NewQualityAnalyzer()

	cases := []string{
		"I'm not sure about that, sorry.",
		"عذراً، لست متأكداً من هذه المعلومة.",
		"لا أعرف موعد وصول الشحنة.",
		"I cannot find that order in our records.",
	}
	for _, reply := range cases {
		report := a.Analyze(reply, "سؤال")
		assert.Equal(t, 0.30, report.Confidence, "reply %q should score as hedged", reply)
		// Hedged sits exactly at the threshold; only scores strictly below it
		// escalate. The failure counter still advances via RecordOutcome.
		assert.False(t, report.ShouldHandoff)
	}
}

func TestClassifyIntent(t *testing.T) {
	a := NewQualityAnalyzer()

	cases := []struct {
		message string
		want    model.Intent
	}{
		{"where is my order?", model.IntentOrderInquiry},
		{"متى يتم شحن طلبي؟", model.IntentOrderInquiry},
		{"كم سعر هذا المنتج؟", model.IntentProductInquiry},
		{"is this available in stock?", model.IntentProductInquiry},
		{"عندي مشكلة في الجهاز", model.IntentComplaint},
		{"I want a refund", model.IntentComplaint},
		{"السلام عليكم", model.IntentGreeting},
		{"xyzzy", model.Intent("")},
	}
	for _, tc := range cases {
		report := a.Analyze("رد عادي.", tc.message)
		assert.Equal(t, tc.want, report.Intent, "message %q", tc.message)
	}
}

func TestIntentPrecedenceOrderBeforeGreeting(t *testing.T) {
	a := NewQualityAnalyzer()

	// A greeting that also mentions an order classifies as order inquiry.
	report := a.Analyze("رد.", "مرحبا، وين وصل طلبي؟")
	assert.Equal(t, model.IntentOrderInquiry, report.Intent)
}
