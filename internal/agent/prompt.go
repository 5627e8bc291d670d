package agent

import (
	"context"
	"strings"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

// PromptBuilder assembles the system instruction text sent to the model.
// Section order is deterministic and affects model behavior: persona, tone,
// store facts, knowledge, customer name, rules.
type PromptBuilder struct {
	knowledge *KnowledgeRetriever
}

// NewPromptBuilder creates a prompt builder over the given retriever.
func NewPromptBuilder(knowledge *KnowledgeRetriever) *PromptBuilder {
	return &PromptBuilder{knowledge: knowledge}
}

var toneDirectives = map[string]map[string]string{
	"ar": {
		"formal":       "استخدم أسلوباً رسمياً ومهذباً في جميع ردودك.",
		"friendly":     "استخدم أسلوباً ودوداً وبسيطاً في جميع ردودك.",
		"professional": "استخدم أسلوباً احترافياً ومباشراً في جميع ردودك.",
	},
	"en": {
		"formal":       "Use a formal, polite style in all your replies.",
		"friendly":     "Use a friendly, simple style in all your replies.",
		"professional": "Use a professional, direct style in all your replies.",
	},
}

// Build produces the system prompt for one orchestration cycle.
func (b *PromptBuilder) Build(ctx context.Context, settings model.AgentSettings, conv *model.Conversation) string {
	lang := "ar"
	if settings.Language == "en" {
		lang = "en"
	}

	var sb strings.Builder

	// 1. Persona
	if lang == "en" {
		sb.WriteString("You are a customer support assistant for the store \"" + settings.StoreName + "\".\n")
	} else {
		sb.WriteString("أنت مساعد خدمة عملاء لمتجر \"" + settings.StoreName + "\".\n")
	}

	// 2. Tone
	tone, ok := toneDirectives[lang][settings.Tone]
	if !ok {
		tone = toneDirectives[lang]["friendly"]
	}
	sb.WriteString(tone + "\n")

	// 3. Store facts, only when configured
	writeFact(&sb, lang, "وصف المتجر", "Store description", settings.StoreDescription)
	writeFact(&sb, lang, "ساعات العمل", "Working hours", settings.WorkingHours)
	writeFact(&sb, lang, "سياسة الاسترجاع", "Return policy", settings.ReturnPolicy)
	writeFact(&sb, lang, "معلومات الشحن", "Shipping info", settings.ShippingInfo)

	// 4. Knowledge, gated by search priority
	if settings.SearchPriority == model.SearchLibraryOnly || settings.SearchPriority == model.SearchLibraryThenProducts {
		articles, qa := b.knowledge.Sections(ctx, conv.TenantID)
		if len(articles) > 0 || len(qa) > 0 {
			if lang == "en" {
				sb.WriteString("\nStore knowledge base:\n")
			} else {
				sb.WriteString("\nمعلومات من مكتبة المتجر:\n")
			}
			for _, line := range articles {
				sb.WriteString(line + "\n")
			}
			for _, block := range qa {
				sb.WriteString(block + "\n")
			}
		}
	}

	// 5. Customer name
	if conv.CustomerName != "" {
		if lang == "en" {
			sb.WriteString("\nThe customer's name is " + conv.CustomerName + ".\n")
		} else {
			sb.WriteString("\nاسم العميل هو " + conv.CustomerName + ".\n")
		}
	}

	// 6. Rules
	if lang == "en" {
		sb.WriteString("\nRules:\n" +
			"- Answer only from the information provided above.\n" +
			"- If you are not sure of an answer, reply exactly with: " + settings.FallbackMessage + "\n" +
			"- Never invent prices, discounts or stock levels.\n" +
			"- If the customer explicitly asks for a human, call the request_human_agent function.\n")
	} else {
		sb.WriteString("\nالقواعد:\n" +
			"- أجب فقط من المعلومات المذكورة أعلاه.\n" +
			"- إذا لم تكن متأكداً من الإجابة، رد حرفياً بـ: " + settings.FallbackMessage + "\n" +
			"- لا تخترع أسعاراً أو خصومات أو كميات مخزون أبداً.\n" +
			"- إذا طلب العميل صراحةً التحدث مع موظف، استخدم دالة request_human_agent.\n")
	}

	return sb.String()
}

func writeFact(sb *strings.Builder, lang, arLabel, enLabel, value string) {
	if value == "" {
		return
	}
	if lang == "en" {
		sb.WriteString(enLabel + ": " + value + "\n")
		return
	}
	sb.WriteString(arLabel + ": " + value + "\n")
}
