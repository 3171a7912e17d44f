package db

import (
	"context"
	"fmt"

	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreatePattern inserts a newly mined success pattern.
func (c *Client) CreatePattern(ctx context.Context, p models.SuccessPattern) (*models.SuccessPattern, error) {
	if p.Triggers == nil {
		p.Triggers = []string{}
	}

	sql := `
		CREATE pattern SET
			tenant = $tenant,
			type = $type,
			description = $description,
			strength = $strength,
			triggers = $triggers,
			sample_size = $sample_size
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.SuccessPattern](ctx, c.db, sql, map[string]any{
		"tenant":      p.Tenant,
		"type":        string(p.Type),
		"description": p.Description,
		"strength":    p.Strength,
		"triggers":    p.Triggers,
		"sample_size": p.SampleSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create pattern: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create pattern: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// UpdatePattern overwrites a pattern's merged fields after a
// similarity merge.
func (c *Client) UpdatePattern(ctx context.Context, id string, p models.SuccessPattern) (*models.SuccessPattern, error) {
	sql := `
		UPDATE type::record("pattern", $id) SET
			description = $description,
			strength = $strength,
			triggers = $triggers,
			sample_size = $sample_size,
			updated = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.SuccessPattern](ctx, c.db, sql, map[string]any{
		"id":          id,
		"description": p.Description,
		"strength":    p.Strength,
		"triggers":    p.Triggers,
		"sample_size": p.SampleSize,
	})
	if err != nil {
		return nil, fmt.Errorf("update pattern: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update pattern: %w", ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ListPatternsByType returns a tenant's stored patterns of one type.
func (c *Client) ListPatternsByType(ctx context.Context, tenant string, typ models.PatternType) ([]models.SuccessPattern, error) {
	sql := `
		SELECT * FROM pattern
		WHERE tenant = $tenant AND type = $type
		ORDER BY strength DESC
	`

	results, err := surrealdb.Query[[]models.SuccessPattern](ctx, c.db, sql, map[string]any{
		"tenant": tenant,
		"type":   string(typ),
	})
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.SuccessPattern{}, nil
	}
	return (*results)[0].Result, nil
}

// TopPatterns returns the strongest patterns for a tenant across all
// types, for prompt hints.
func (c *Client) TopPatterns(ctx context.Context, tenant string, limit int) ([]models.SuccessPattern, error) {
	sql := `
		SELECT * FROM pattern
		WHERE tenant = $tenant
		ORDER BY strength DESC
		LIMIT $limit
	`

	results, err := surrealdb.Query[[]models.SuccessPattern](ctx, c.db, sql, map[string]any{
		"tenant": tenant,
		"limit":  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("top patterns: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.SuccessPattern{}, nil
	}
	return (*results)[0].Result, nil
}

// DeletePattern removes a pattern (used when reconciliation folds a
// duplicate into a survivor).
func (c *Client) DeletePattern(ctx context.Context, id string) error {
	sql := `DELETE type::record("pattern", $id)`

	if _, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("delete pattern: %w", wrapQueryError(err))
	}
	return nil
}
