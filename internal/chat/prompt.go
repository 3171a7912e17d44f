package chat

import (
	"fmt"
	"strings"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/models"
)

// replyPrompts composes the generation prompt for a regular turn:
// tenant persona and business facts, the current slot state, hints
// from learned success patterns, then the bounded transcript.
func replyPrompts(
	tenant config.Tenant,
	slots models.OrderSlots,
	window []models.MemoryRecord,
	latest string,
	patterns []models.SuccessPattern,
) (system, user string) {
	var sb strings.Builder

	persona := tenant.Persona
	if persona == "" {
		persona = "You are a friendly, concise customer-support sales assistant for an online shop. Reply in the customer's language."
	}
	sb.WriteString(persona)
	sb.WriteString("\n")

	if tenant.BusinessFacts != "" {
		sb.WriteString("\nBusiness facts:\n")
		sb.WriteString(tenant.BusinessFacts)
		sb.WriteString("\n")
	}

	sb.WriteString("\nOrder state so far:\n")
	sb.WriteString(slotSummary(slots))
	sb.WriteString("\nAsk for the product first if it is missing; otherwise ask only for what is still unknown. When the order is complete, ask the customer to confirm it.\n")

	if len(patterns) > 0 {
		sb.WriteString("\nResponse styles that worked well before:\n")
		for _, p := range patterns {
			fmt.Fprintf(&sb, "- %s\n", p.Description)
		}
	}
	system = sb.String()

	var ub strings.Builder
	for _, rec := range window {
		ub.WriteString("customer: ")
		ub.WriteString(rec.Message)
		ub.WriteString("\nassistant: ")
		ub.WriteString(rec.Response)
		ub.WriteString("\n")
	}
	ub.WriteString("customer: ")
	ub.WriteString(latest)
	user = ub.String()
	return system, user
}

func slotSummary(slots models.OrderSlots) string {
	field := func(v string) string {
		if v == "" {
			return "(unknown)"
		}
		return v
	}
	return fmt.Sprintf("product: %s\ncolor: %s\nsize: %s\n",
		field(slots.Product), field(slots.Color), field(slots.Size))
}

// confirmedReply is the canned acknowledgement for a finalized order.
// No provider call is needed to commit an order.
func confirmedReply(slots models.OrderSlots) string {
	details := slots.Product
	if slots.Color != "" {
		details += " " + slots.Color
	}
	if slots.Size != "" {
		details += " مقاس " + slots.Size
	}
	return fmt.Sprintf("تمام، سجلنا طلبك: %s. هنتواصل معاك لتأكيد التوصيل. شكراً لثقتك فينا!", details)
}

// clarifyReply asks the customer to restate an ambiguous order rather
// than guessing which product the scattered details belong to.
func clarifyReply() string {
	return "عشان نتأكد إن الطلب مظبوط، ممكن تقولنا اسم المنتج اللي تحب تطلبه مع اللون والمقاس في رسالة واحدة؟"
}
