package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/models"
)

// Detection methods, tagged on the result so tests can assert which
// tier answered independently of the outcome.
const (
	MethodKeyword = "keyword"
	MethodModel   = "model"
)

// Confirmation is the result of confirmation detection.
type Confirmation struct {
	Confirming bool
	Method     string
}

// ModelCall runs a prompt through the orchestrator's credential-backed
// generation path. Injected so the detector and extractor stay
// decoupled from key management.
type ModelCall func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// DetectConfirmation decides whether the message is an affirmative
// commit signal. The deterministic keyword tier is free and resolves
// most real confirmations; the model tier is reached only for
// non-trivial messages that miss it, bounding cost. A model-tier
// failure degrades to not-confirming so an ambiguous message leads to
// a follow-up question instead of a false order commit.
func DetectConfirmation(
	ctx context.Context,
	message string,
	window []models.MemoryRecord,
	tenant config.Tenant,
	call ModelCall,
	logger *slog.Logger,
) Confirmation {
	if matchAffirmation(message, tenant) {
		return Confirmation{Confirming: true, Method: MethodKeyword}
	}

	if len([]rune(strings.TrimSpace(message))) < tenant.MinModelLength || call == nil {
		return Confirmation{Confirming: false, Method: MethodKeyword}
	}

	system, user := confirmationPrompts(message, window)
	answer, err := call(ctx, system, user)
	if err != nil {
		logger.Warn("confirmation model tier failed, treating as not confirming",
			"tenant", tenant.ID, "error", err)
		return Confirmation{Confirming: false, Method: MethodModel}
	}

	confirming := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(answer)), "YES")
	return Confirmation{Confirming: confirming, Method: MethodModel}
}

// matchAffirmation checks the normalized message against the tenant's
// affirmation tokens. Short messages must match whole; longer ones
// match on their leading token ("تمام يا باشا" still confirms).
func matchAffirmation(message string, tenant config.Tenant) bool {
	tokens := Tokens(message)
	if len(tokens) == 0 || len(tokens) > 3 {
		return false
	}
	for _, affirm := range tenant.AffirmationTokens {
		normAffirm := stripArticle(Normalize(affirm))
		if tokens[0] == normAffirm {
			return true
		}
	}
	return false
}

func confirmationPrompts(message string, window []models.MemoryRecord) (system, user string) {
	system = `You classify a customer's chat message. Decide whether the message confirms the order discussed in the conversation.
Answer with exactly one word: YES or NO.`

	var b strings.Builder
	for _, rec := range window {
		b.WriteString("customer: ")
		b.WriteString(rec.Message)
		b.WriteString("\nassistant: ")
		b.WriteString(rec.Response)
		b.WriteString("\n")
	}
	b.WriteString("customer: ")
	b.WriteString(message)
	user = b.String()
	return system, user
}
