package agent

import (
	"strings"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

// QualityReport is the analyzer's verdict on a generated reply.
type QualityReport struct {
	Confidence    float64
	Intent        model.Intent
	ShouldHandoff bool
	HandoffReason model.HandoffReason
}

// Confidence levels assigned by the analyzer. A hedged reply drops straight
// to hedgedConfidence; there is no intermediate scoring.
const (
	baseConfidence   = 0.85
	hedgedConfidence = 0.30
	handoffThreshold = 0.30
)

// hedgingPhrases mark a reply as uncertain. First match wins.
var hedgingPhrases = []string{
	"not sure",
	"don't know",
	"do not know",
	"i don't have",
	"cannot find",
	"can't find",
	"unable to help",
	"لست متأكد",
	"لست متأكدة",
	"لا أعرف",
	"لا اعرف",
	"لا أملك",
	"لا تتوفر لدي",
	"غير متأكد",
}

var intentKeywords = []struct {
	intent   model.Intent
	keywords []string
}{
	{model.IntentOrderInquiry, []string{
		"order", "shipping", "delivery", "track", "shipment",
		"طلب", "طلبي", "شحن", "شحنة", "توصيل", "أوردر", "اوردر", "تتبع",
	}},
	{model.IntentProductInquiry, []string{
		"product", "price", "cost", "available", "stock",
		"منتج", "سعر", "السعر", "متوفر", "مقاس", "لون",
	}},
	{model.IntentComplaint, []string{
		"problem", "complaint", "issue", "broken", "refund", "wrong",
		"مشكلة", "شكوى", "خطأ", "استرجاع", "تالف", "متأخر",
	}},
	{model.IntentGreeting, []string{
		"hi", "hello", "hey", "مرحبا", "هلا", "السلام عليكم", "أهلا", "اهلا", "صباح الخير", "مساء الخير",
	}},
}

// QualityAnalyzer heuristically scores a generated reply and infers the
// customer's intent. This is deliberately a cheap string scan, not a model
// call.
type QualityAnalyzer struct{}

// NewQualityAnalyzer creates an analyzer.
func NewQualityAnalyzer() *QualityAnalyzer {
	return &QualityAnalyzer{}
}

// Analyze scores the reply and classifies the original customer message.
func (a *QualityAnalyzer) Analyze(reply, originalMessage string) QualityReport {
	report := QualityReport{Confidence: baseConfidence}

	lowered := strings.ToLower(reply)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lowered, phrase) {
			report.Confidence = hedgedConfidence
			break
		}
	}

	if report.Confidence < handoffThreshold {
		report.ShouldHandoff = true
		report.HandoffReason = model.HandoffReasonLowConfidence
	}

	report.Intent = classifyIntent(originalMessage)
	return report
}

func classifyIntent(message string) model.Intent {
	lowered := strings.ToLower(message)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lowered, kw) {
				return group.intent
			}
		}
	}
	return ""
}
