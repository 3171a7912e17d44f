package db

import (
	"context"
	"fmt"

	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateCredential adds a provider key to a tenant's pool. New keys
// start inactive; activation is a separate, exclusive step.
func (c *Client) CreateCredential(ctx context.Context, cred models.Credential) (*models.Credential, error) {
	if cred.Models == nil {
		cred.Models = []string{}
	}

	sql := `
		CREATE credential SET
			tenant = $tenant,
			secret = $secret,
			models = $models,
			daily_limit = $daily_limit,
			used_today = 0,
			active = false,
			window_start = time::now(),
			last_validated = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Credential](ctx, c.db, sql, map[string]any{
		"tenant":      cred.Tenant,
		"secret":      cred.Secret,
		"models":      cred.Models,
		"daily_limit": cred.DailyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create credential: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListCredentials returns a tenant's pool in selection priority order:
// the active credential first, then by most recently validated.
func (c *Client) ListCredentials(ctx context.Context, tenant string) ([]models.Credential, error) {
	sql := `
		SELECT * FROM credential
		WHERE tenant = $tenant
		ORDER BY active DESC, last_validated DESC
	`

	results, err := surrealdb.Query[[]models.Credential](ctx, c.db, sql, map[string]any{
		"tenant": tenant,
	})
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Credential{}, nil
	}
	return (*results)[0].Result, nil
}

// AddCredentialUsage atomically increments a credential's usage counter.
// The increment happens in a single UPDATE at the storage layer so
// concurrent turns for the same tenant never lose updates.
func (c *Client) AddCredentialUsage(ctx context.Context, id string, amount int) (*models.Credential, error) {
	sql := `
		UPDATE type::record("credential", $id) SET
			used_today += $amount,
			updated = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Credential](ctx, c.db, sql, map[string]any{
		"id":     id,
		"amount": amount,
	})
	if err != nil {
		return nil, fmt.Errorf("add credential usage: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("add credential usage: %w", ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// ActivateCredential makes a credential the tenant's single active key,
// deactivating any sibling in the same statement. When resetUsage is
// set the usage window restarts (used on failover reactivation and on
// admin force-reactivate).
func (c *Client) ActivateCredential(ctx context.Context, tenant, id string, resetUsage bool) (*models.Credential, error) {
	sql := `
		UPDATE credential SET active = false, updated = time::now()
			WHERE tenant = $tenant AND active = true AND id != type::record("credential", $id);
		UPDATE type::record("credential", $id) SET
			active = true,
			used_today = IF $reset THEN 0 ELSE used_today END,
			window_start = IF $reset THEN time::now() ELSE window_start END,
			last_validated = time::now(),
			updated = time::now()
		RETURN AFTER;
	`

	results, err := surrealdb.Query[[]models.Credential](ctx, c.db, sql, map[string]any{
		"tenant": tenant,
		"id":     id,
		"reset":  resetUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("activate credential: %w", wrapQueryError(err))
	}

	// Second statement's result carries the activated credential.
	if results == nil || len(*results) < 2 || len((*results)[1].Result) == 0 {
		return nil, fmt.Errorf("activate credential: %w", ErrNotFound)
	}
	return &(*results)[1].Result[0], nil
}

// DeactivateCredential marks a credential unusable after a quota or
// invalid-key failure so selection skips it until its window rolls.
func (c *Client) DeactivateCredential(ctx context.Context, id string) error {
	sql := `
		UPDATE type::record("credential", $id) SET
			active = false,
			updated = time::now()
	`

	if _, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("deactivate credential: %w", wrapQueryError(err))
	}
	return nil
}

// RolloverCredentialWindows resets usage for any of the tenant's
// credentials whose 24h window has passed. Time-based reset makes
// exhausted-but-valid keys eligible again without manual action.
func (c *Client) RolloverCredentialWindows(ctx context.Context, tenant string) error {
	sql := `
		UPDATE credential SET
			used_today = 0,
			window_start = time::now(),
			updated = time::now()
		WHERE tenant = $tenant AND window_start < time::now() - 24h
	`

	if _, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{"tenant": tenant}); err != nil {
		return fmt.Errorf("rollover credential windows: %w", wrapQueryError(err))
	}
	return nil
}
