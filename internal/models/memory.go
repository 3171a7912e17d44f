// Package models defines data structures for the souqchat conversational core.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Intent is the coarse category detected for a customer message.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentBrowsing   Intent = "browsing"
	IntentOrdering   Intent = "ordering"
	IntentConfirming Intent = "confirming"
	IntentComplaint  Intent = "complaint"
	IntentOther      Intent = "other"
)

// Sentiment is the coarse tone detected for a customer message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// MemoryRecord is one stored conversational turn: the customer message,
// the reply we produced, and what we detected about the message.
// Records are append-only; they are never mutated after creation.
type MemoryRecord struct {
	ID           surrealmodels.RecordID `json:"id,omitempty"`
	Tenant       string                 `json:"tenant"`
	Conversation string                 `json:"conversation"`
	Participant  string                 `json:"participant"`
	Message      string                 `json:"message"`
	Response     string                 `json:"response"`
	Intent       Intent                 `json:"intent"`
	Sentiment    Sentiment              `json:"sentiment"`
	// Degraded marks turns answered by the canned fallback path, so
	// pattern learning can tell real generations from stand-ins.
	Degraded bool      `json:"degraded"`
	Created  time.Time `json:"created,omitempty"`
}
