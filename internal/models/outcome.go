package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// OutcomeKind classifies how a conversation ended.
type OutcomeKind string

const (
	OutcomePurchase  OutcomeKind = "purchase"
	OutcomeSatisfied OutcomeKind = "satisfied"
	OutcomeAbandoned OutcomeKind = "abandoned"
	OutcomeEscalated OutcomeKind = "escalated"
)

// Positive reports whether the outcome counts as a success for
// pattern learning.
func (k OutcomeKind) Positive() bool {
	return k == OutcomePurchase || k == OutcomeSatisfied
}

// Outcome records a conversation's terminal classification together
// with the responses that led there. Read-only input to the pattern
// learning engine.
type Outcome struct {
	ID           surrealmodels.RecordID `json:"id,omitempty"`
	Tenant       string                 `json:"tenant"`
	Conversation string                 `json:"conversation"`
	Kind         OutcomeKind            `json:"kind"`
	Responses    []string               `json:"responses"`
	Created      time.Time              `json:"created,omitempty"`
}
