package models

// OrderSlots is the derived view of the order under construction.
// It is recomputed from the memory window on every turn and never
// persisted, so there is no staleness to manage.
type OrderSlots struct {
	Product string `json:"product"`
	Color   string `json:"color"`
	Size    string `json:"size"`
	// NeedsReview is set when color and size arrived in separate turns
	// with no product named anywhere; that ambiguity is escalated to a
	// human instead of guessed.
	NeedsReview bool `json:"needs_review"`
}

// Complete reports whether the order can be confirmed: a product has
// been identified and at least one of color/size is known. The bar is
// deliberately permissive; follow-up questions only chase product
// identity.
func (s OrderSlots) Complete() bool {
	return s.Product != "" && (s.Color != "" || s.Size != "")
}

// ConversationState tracks where an order stands in its lifecycle.
type ConversationState string

const (
	StateGathering      ConversationState = "gathering"
	StateReadyToConfirm ConversationState = "ready_to_confirm"
	StateFinalized      ConversationState = "finalized"
)

// FinalizeEvent is emitted when a confirmed, complete order is handed
// off to fulfillment. What happens to it afterwards is out of scope.
type FinalizeEvent struct {
	Tenant       string     `json:"tenant"`
	Conversation string     `json:"conversation"`
	Participant  string     `json:"participant"`
	Slots        OrderSlots `json:"slots"`
}
