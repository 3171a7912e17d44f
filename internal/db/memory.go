package db

import (
	"context"
	"fmt"
	"time"

	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateMemory appends a conversation turn. Records are append-only;
// nothing here ever mutates an existing row.
func (c *Client) CreateMemory(ctx context.Context, rec models.MemoryRecord) (*models.MemoryRecord, error) {
	sql := `
		CREATE memory SET
			tenant = $tenant,
			conversation = $conversation,
			participant = $participant,
			message = $message,
			response = $response,
			intent = $intent,
			sentiment = $sentiment,
			degraded = $degraded
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.MemoryRecord](ctx, c.db, sql, map[string]any{
		"tenant":       rec.Tenant,
		"conversation": rec.Conversation,
		"participant":  rec.Participant,
		"message":      rec.Message,
		"response":     rec.Response,
		"intent":       string(rec.Intent),
		"sentiment":    string(rec.Sentiment),
		"degraded":     rec.Degraded,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create memory: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// RecentMemory returns up to limit turns for a conversation/participant
// pair no older than maxAge, newest first. Callers reverse for
// prompt order.
func (c *Client) RecentMemory(
	ctx context.Context,
	conversation, participant string,
	limit int,
	maxAge time.Duration,
) ([]models.MemoryRecord, error) {
	sql := `
		SELECT * FROM memory
		WHERE conversation = $conversation
			AND participant = $participant
			AND created > time::now() - type::duration($max_age)
		ORDER BY created DESC
		LIMIT $limit
	`

	results, err := surrealdb.Query[[]models.MemoryRecord](ctx, c.db, sql, map[string]any{
		"conversation": conversation,
		"participant":  participant,
		"max_age":      maxAge.String(),
		"limit":        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("recent memory: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.MemoryRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// PruneMemory deletes a tenant's turns older than the retention horizon.
// Returns the number of deleted records.
func (c *Client) PruneMemory(ctx context.Context, tenant string, olderThan time.Duration) (int, error) {
	sql := `
		DELETE memory
		WHERE tenant = $tenant AND created < time::now() - type::duration($horizon)
		RETURN BEFORE
	`

	results, err := surrealdb.Query[[]models.MemoryRecord](ctx, c.db, sql, map[string]any{
		"tenant":  tenant,
		"horizon": olderThan.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("prune memory: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}
