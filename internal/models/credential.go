package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Credential is one provider API key in a tenant's pool, with its own
// daily quota window. At most one credential is active per tenant.
type Credential struct {
	ID     surrealmodels.RecordID `json:"id,omitempty"`
	Tenant string                 `json:"tenant"`
	Secret string                 `json:"secret"`
	Models []string               `json:"models"`
	// DailyLimit is the quota ceiling per rolling 24h window.
	DailyLimit int  `json:"daily_limit"`
	UsedToday  int  `json:"used_today"`
	Active     bool `json:"active"`
	// WindowStart marks when the current usage window opened; usage
	// resets once it is more than 24h old.
	WindowStart   time.Time `json:"window_start,omitempty"`
	LastValidated time.Time `json:"last_validated,omitempty"`
	Created       time.Time `json:"created,omitempty"`
	Updated       time.Time `json:"updated,omitempty"`
}

// Exhausted reports whether the credential has no quota left in its
// current window.
func (c Credential) Exhausted() bool {
	return c.DailyLimit > 0 && c.UsedToday >= c.DailyLimit
}

// Model returns the preferred model identifier for this credential.
func (c Credential) Model() string {
	if len(c.Models) == 0 {
		return ""
	}
	return c.Models[0]
}
