package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/keypool"
	"github.com/nfadel/souqchat-go/internal/llm"
	"github.com/nfadel/souqchat-go/internal/metrics"
	"github.com/nfadel/souqchat-go/internal/models"
)

// FinalizeFunc receives the finalize event when a confirmed, complete
// order is committed. Fulfillment is out of scope; the core's
// obligation ends at emitting the event.
type FinalizeFunc func(ctx context.Context, event models.FinalizeEvent)

// pool is the slice of the key pool manager the orchestrator uses.
type pool interface {
	Acquire(ctx context.Context, tenant string) (models.Credential, error)
	RecordUsage(ctx context.Context, credentialID string, amount int) error
	RecordFailure(ctx context.Context, credentialID string, kind llm.FailureKind) error
}

// patternSource supplies learned success patterns for prompt hints.
type patternSource interface {
	TopPatterns(ctx context.Context, tenant string, limit int) ([]models.SuccessPattern, error)
}

// outcomeDB records terminal conversation classifications.
type outcomeDB interface {
	CreateOutcome(ctx context.Context, o models.Outcome) (*models.Outcome, error)
}

// Reply is the structured result of one handled turn.
type Reply struct {
	Text     string   `json:"text"`
	Media    []string `json:"media,omitempty"`
	Metadata Meta     `json:"metadata"`
}

// Meta describes how the turn was handled.
type Meta struct {
	State     models.ConversationState `json:"state"`
	Slots     models.OrderSlots        `json:"slots"`
	Method    string                   `json:"method,omitempty"`
	Degraded  bool                     `json:"degraded"`
	Escalated bool                     `json:"escalated"`
}

// Orchestrator composes the memory window, slot extraction and
// confirmation detection into a reply per inbound message.
type Orchestrator struct {
	memory   *MemoryStore
	pool     pool
	gen      llm.Generator
	tenants  *config.Tenants
	finalize FinalizeFunc
	patterns patternSource
	outcomes outcomeDB
	metrics  *metrics.Collector
	logger   *slog.Logger

	// finalized tracks, per conversation, when the last order was
	// committed so slot extraction ignores turns that belong to it.
	mu        sync.Mutex
	finalized map[string]time.Time
}

// finalizedTTL is how long a commit cutoff is kept. Past the memory
// age ceiling no window can contain pre-commit turns, so the cutoff
// is moot and the entry can go.
const finalizedTTL = 48 * time.Hour

// OrchestratorDeps bundles the orchestrator's collaborators.
type OrchestratorDeps struct {
	Memory    *MemoryStore
	Pool      pool
	Generator llm.Generator
	Tenants   *config.Tenants
	Finalize  FinalizeFunc
	Patterns  patternSource
	Outcomes  outcomeDB
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// NewOrchestrator creates the response generation orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	return &Orchestrator{
		memory:    deps.Memory,
		pool:      deps.Pool,
		gen:       deps.Generator,
		tenants:   deps.Tenants,
		finalize:  deps.Finalize,
		patterns:  deps.Patterns,
		outcomes:  deps.Outcomes,
		metrics:   deps.Metrics,
		finalized: make(map[string]time.Time),
		logger:    deps.Logger,
	}
}

// Reply handles one inbound customer message end to end. Every failure
// path terminates in a substantive reply, the canned fallback, or a
// clarifying question; no internal error reaches the channel.
func (o *Orchestrator) Reply(ctx context.Context, tenantID, conversation, participant, message string) (Reply, error) {
	tenant := o.tenants.Get(tenantID)

	window, err := o.memory.Window(ctx, tenant, conversation, participant)
	if err != nil {
		// A missing window degrades context quality, never the turn.
		o.logger.Warn("memory window unavailable", "conversation", conversation, "error", err)
		window = nil
	}
	slotWindow := o.sinceFinalize(conversation, participant, window)

	call := o.modelCall(tenantID)

	start := time.Now()
	slots := ExtractSlots(slotWindow, message, tenant)
	o.metrics.RecordTiming(metrics.OpSlotsLexical, time.Since(start))

	if slots.Product == "" && !slots.NeedsReview && len([]rune(strings.TrimSpace(message))) >= tenant.MinModelLength {
		slots = o.extractWithModel(ctx, slotWindow, message, tenant, slots, call)
	}

	confirmation := DetectConfirmation(ctx, message, slotWindow, tenant, call, o.logger)
	if confirmation.Method == MethodKeyword {
		o.metrics.Record(metrics.OpConfirmKeyword)
	} else {
		o.metrics.Record(metrics.OpConfirmModel)
	}

	var reply Reply
	switch {
	case confirmation.Confirming && slots.Complete():
		reply = o.commitOrder(ctx, tenant, conversation, participant, slots)

	case slots.NeedsReview:
		// Cross-turn color/size with no product: escalate, don't guess.
		o.logger.Warn("ambiguous slot state, escalating",
			"tenant", tenant.ID, "conversation", conversation, "slots", fmt.Sprintf("%+v", slots))
		reply = Reply{
			Text:     clarifyReply(),
			Metadata: Meta{State: models.StateGathering, Slots: slots, Escalated: true},
		}

	default:
		reply = o.generateReply(ctx, tenant, slots, slotWindow, message, call)
	}
	reply.Metadata.Method = confirmation.Method

	rec := models.MemoryRecord{
		Tenant:       tenant.ID,
		Conversation: conversation,
		Participant:  participant,
		Message:      message,
		Response:     reply.Text,
		Intent:       DetectIntent(message, confirmation.Confirming),
		Sentiment:    DetectSentiment(message),
		Degraded:     reply.Metadata.Degraded,
	}
	if err := o.memory.Append(ctx, rec); err != nil {
		// The reply is already composed; losing one memory record must
		// never lose the customer-facing reply.
		o.logger.Error("memory append failed, turn not rolled back",
			"conversation", conversation, "error", err)
	}

	return reply, nil
}

// commitOrder emits the finalize event and the confirmation reply.
// No provider call happens on this path.
func (o *Orchestrator) commitOrder(ctx context.Context, tenant config.Tenant, conversation, participant string, slots models.OrderSlots) Reply {
	event := models.FinalizeEvent{
		Tenant:       tenant.ID,
		Conversation: conversation,
		Participant:  participant,
		Slots:        slots,
	}
	if o.finalize != nil {
		o.finalize(ctx, event)
	}
	o.metrics.Record(metrics.OpFinalize)

	now := time.Now()
	o.mu.Lock()
	o.finalized[conversation+"|"+participant] = now
	for key, at := range o.finalized {
		if now.Sub(at) > finalizedTTL {
			delete(o.finalized, key)
		}
	}
	o.mu.Unlock()

	o.logger.Info("order finalized",
		"tenant", tenant.ID, "conversation", conversation,
		"product", slots.Product, "color", slots.Color, "size", slots.Size)

	return Reply{
		Text:     confirmedReply(slots),
		Metadata: Meta{State: models.StateFinalized, Slots: slots},
	}
}

// generateReply runs the provider-backed generation path with the
// canned fallback on total failure.
func (o *Orchestrator) generateReply(
	ctx context.Context,
	tenant config.Tenant,
	slots models.OrderSlots,
	window []models.MemoryRecord,
	message string,
	call ModelCall,
) Reply {
	state := models.StateGathering
	if slots.Complete() {
		state = models.StateReadyToConfirm
	}

	var hints []models.SuccessPattern
	if o.patterns != nil {
		var err error
		hints, err = o.patterns.TopPatterns(ctx, tenant.ID, 3)
		if err != nil {
			o.logger.Debug("pattern hints unavailable", "tenant", tenant.ID, "error", err)
		}
	}

	system, user := replyPrompts(tenant, slots, window, message, hints)
	start := time.Now()
	text, err := call(ctx, system, user)
	if err != nil {
		o.metrics.Record(metrics.OpFallbackReply)
		if errors.Is(err, keypool.ErrNoCredentialAvailable) {
			o.logger.Warn("credential pool exhausted, sending fallback reply", "tenant", tenant.ID)
		} else {
			o.logger.Warn("generation failed, sending fallback reply", "tenant", tenant.ID, "error", err)
		}
		return Reply{
			Text:     tenant.FallbackReply,
			Metadata: Meta{State: state, Slots: slots, Degraded: true},
		}
	}
	o.metrics.RecordTiming(metrics.OpLLMGenerate, time.Since(start))

	return Reply{
		Text:     strings.TrimSpace(text),
		Metadata: Meta{State: state, Slots: slots},
	}
}

// extractWithModel is the slot extractor's probabilistic tier, reached
// only when the lexical tier cannot identify a product. Lexical finds
// keep priority over model output.
func (o *Orchestrator) extractWithModel(
	ctx context.Context,
	window []models.MemoryRecord,
	message string,
	tenant config.Tenant,
	lexical models.OrderSlots,
	call ModelCall,
) models.OrderSlots {
	system, user := slotExtractionPrompts(window, message, tenant)
	start := time.Now()
	out, err := call(ctx, system, user)
	if err != nil {
		o.logger.Debug("model slot extraction unavailable", "tenant", tenant.ID, "error", err)
		return lexical
	}
	o.metrics.RecordTiming(metrics.OpSlotsModel, time.Since(start))

	extracted := parseSlotLines(out)
	if extracted.Product == "" {
		return lexical
	}
	merged := lexical
	merged.Product = extracted.Product
	if merged.Color == "" {
		merged.Color = extracted.Color
	}
	if merged.Size == "" {
		merged.Size = extracted.Size
	}
	return merged
}

// modelCall builds the credential-backed generation closure shared by
// the reply path, the confirmation detector's model tier and the slot
// extractor's fallback. One retry against the same or the next
// credential, then the error surfaces for the fallback path.
func (o *Orchestrator) modelCall(tenantID string) ModelCall {
	return func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		var lastErr error
		for attempt := 0; attempt < 2; attempt++ {
			cred, err := o.pool.Acquire(ctx, tenantID)
			if err != nil {
				return "", err
			}
			credID := models.MustRecordIDString(cred.ID)

			text, err := o.gen.Generate(ctx, systemPrompt, userPrompt, cred)
			if err != nil {
				lastErr = err
				kind := llm.Classify(err)
				if ferr := o.pool.RecordFailure(ctx, credID, kind); ferr != nil {
					o.logger.Warn("record credential failure", "credential", credID, "error", ferr)
				}
				// Transient/timeout leave the key active so the retry may
				// reuse it; quota/invalid failures deactivate it so the
				// retry acquires the next one.
				continue
			}

			if uerr := o.pool.RecordUsage(ctx, credID, 1); uerr != nil {
				o.logger.Warn("record credential usage", "credential", credID, "error", uerr)
			}
			return text, nil
		}
		return "", lastErr
	}
}

// sinceFinalize drops turns that belong to an already committed order
// so a new order starts from clean slots.
func (o *Orchestrator) sinceFinalize(conversation, participant string, window []models.MemoryRecord) []models.MemoryRecord {
	o.mu.Lock()
	cutoff, ok := o.finalized[conversation+"|"+participant]
	o.mu.Unlock()
	if !ok {
		return window
	}
	kept := make([]models.MemoryRecord, 0, len(window))
	for _, rec := range window {
		if rec.Created.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// CompleteConversation records a conversation's terminal
// classification for the pattern learning engine, collecting the
// responses the assistant gave along the way.
func (o *Orchestrator) CompleteConversation(ctx context.Context, tenantID, conversation, participant string, kind models.OutcomeKind) error {
	if o.outcomes == nil {
		return nil
	}
	tenant := o.tenants.Get(tenantID)

	// The full retained history, not the prompt window: long
	// conversations feed the miner every response, not the last few.
	var responses []string
	history, err := o.memory.History(ctx, tenant, conversation, participant)
	if err != nil {
		o.logger.Warn("collecting outcome responses failed", "conversation", conversation, "error", err)
	} else {
		for _, rec := range history {
			if !rec.Degraded && rec.Response != "" {
				responses = append(responses, rec.Response)
			}
		}
	}

	if _, err := o.outcomes.CreateOutcome(ctx, models.Outcome{
		Tenant:       tenant.ID,
		Conversation: conversation,
		Kind:         kind,
		Responses:    responses,
	}); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}

	o.logger.Info("conversation outcome recorded",
		"tenant", tenant.ID, "conversation", conversation, "kind", string(kind))
	return nil
}

// Metrics exposes the collector for the HTTP surface and tests.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}
