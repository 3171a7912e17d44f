// Package keypool owns the provider credential pool: selection,
// usage accounting, and failover when a key is exhausted or rejected.
package keypool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nfadel/souqchat-go/internal/llm"
	"github.com/nfadel/souqchat-go/internal/models"
)

// ErrNoCredentialAvailable is returned only when every credential in
// the tenant's pool is inactive or over quota. The orchestrator must
// answer it with the canned fallback reply, never a raw error.
var ErrNoCredentialAvailable = errors.New("no usable credential in pool")

// Store is the persistence surface the pool needs. *db.Client
// satisfies it; tests use in-memory fakes.
type Store interface {
	ListCredentials(ctx context.Context, tenant string) ([]models.Credential, error)
	AddCredentialUsage(ctx context.Context, id string, amount int) (*models.Credential, error)
	ActivateCredential(ctx context.Context, tenant, id string, resetUsage bool) (*models.Credential, error)
	DeactivateCredential(ctx context.Context, id string) error
	RolloverCredentialWindows(ctx context.Context, tenant string) error
}

// Manager selects credentials and tracks their quota state. It holds
// no key state of its own; every decision reads the store so that
// concurrent replicas agree.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager creates a key pool manager.
func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Acquire returns a usable credential for the tenant. The active
// credential wins while it has quota; otherwise the next valid key in
// priority order (most recently validated first) is reactivated with a
// fresh usage window. Fails with ErrNoCredentialAvailable only when
// nothing in the pool is usable.
func (m *Manager) Acquire(ctx context.Context, tenant string) (models.Credential, error) {
	// Time-based reset: exhausted keys become eligible again once
	// their 24h window has passed, without manual reactivation.
	if err := m.store.RolloverCredentialWindows(ctx, tenant); err != nil {
		return models.Credential{}, fmt.Errorf("roll usage windows: %w", err)
	}

	creds, err := m.store.ListCredentials(ctx, tenant)
	if err != nil {
		return models.Credential{}, fmt.Errorf("list credentials: %w", err)
	}

	for _, cred := range creds {
		if cred.Active && !cred.Exhausted() {
			return cred, nil
		}
	}

	// Failover: reactivate the best inactive key with remaining quota.
	// Activation deactivates the exhausted sibling in the same
	// statement, keeping at most one active key per tenant.
	for _, cred := range creds {
		if cred.Active || cred.Exhausted() {
			continue
		}
		id := models.MustRecordIDString(cred.ID)
		activated, err := m.store.ActivateCredential(ctx, tenant, id, true)
		if err != nil {
			m.logger.Warn("credential reactivation failed", "tenant", tenant, "credential", id, "error", err)
			continue
		}
		m.logger.Info("failed over to credential", "tenant", tenant, "credential", id)
		return *activated, nil
	}

	return models.Credential{}, fmt.Errorf("tenant %s: %w", tenant, ErrNoCredentialAvailable)
}

// RecordUsage adds amount to the credential's usage counter. The
// increment is a single atomic read-modify-write at the storage layer.
func (m *Manager) RecordUsage(ctx context.Context, credentialID string, amount int) error {
	cred, err := m.store.AddCredentialUsage(ctx, credentialID, amount)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	if cred.Exhausted() {
		m.logger.Info("credential exhausted its quota window",
			"credential", credentialID, "used", cred.UsedToday, "limit", cred.DailyLimit)
	}
	return nil
}

// RecordFailure reacts to a provider failure on a credential. Quota
// and invalid-key failures deactivate it so selection skips it;
// transient and timeout failures leave it active for immediate retry.
func (m *Manager) RecordFailure(ctx context.Context, credentialID string, kind llm.FailureKind) error {
	if !kind.Fatal() {
		m.logger.Debug("transient provider failure, credential kept active",
			"credential", credentialID, "kind", string(kind))
		return nil
	}

	m.logger.Warn("deactivating credential after provider failure",
		"credential", credentialID, "kind", string(kind))
	if err := m.store.DeactivateCredential(ctx, credentialID); err != nil {
		return fmt.Errorf("deactivate credential: %w", err)
	}
	return nil
}

// ForceReactivate is the administrator override: it makes the given
// credential active with a fresh usage window regardless of its state.
func (m *Manager) ForceReactivate(ctx context.Context, tenant, credentialID string) (models.Credential, error) {
	cred, err := m.store.ActivateCredential(ctx, tenant, credentialID, true)
	if err != nil {
		return models.Credential{}, fmt.Errorf("force reactivate: %w", err)
	}
	m.logger.Info("credential force-reactivated", "tenant", tenant, "credential", credentialID)
	return *cred, nil
}
