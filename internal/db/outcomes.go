package db

import (
	"context"
	"fmt"
	"time"

	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateOutcome records a conversation's terminal classification.
func (c *Client) CreateOutcome(ctx context.Context, o models.Outcome) (*models.Outcome, error) {
	if o.Responses == nil {
		o.Responses = []string{}
	}

	sql := `
		CREATE outcome SET
			tenant = $tenant,
			conversation = $conversation,
			kind = $kind,
			responses = $responses
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Outcome](ctx, c.db, sql, map[string]any{
		"tenant":       o.Tenant,
		"conversation": o.Conversation,
		"kind":         string(o.Kind),
		"responses":    o.Responses,
	})
	if err != nil {
		return nil, fmt.Errorf("create outcome: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create outcome: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListOutcomesSince returns a tenant's outcomes created after the given
// time, oldest first, for incremental mining runs.
func (c *Client) ListOutcomesSince(ctx context.Context, tenant string, since time.Time) ([]models.Outcome, error) {
	sql := `
		SELECT * FROM outcome
		WHERE tenant = $tenant AND created > type::datetime($since)
		ORDER BY created ASC
	`

	results, err := surrealdb.Query[[]models.Outcome](ctx, c.db, sql, map[string]any{
		"tenant": tenant,
		"since":  since.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Outcome{}, nil
	}
	return (*results)[0].Result, nil
}
