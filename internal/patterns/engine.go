package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/models"
)

// Store is the persistence surface the engine needs. *db.Client
// satisfies it; tests use in-memory fakes.
type Store interface {
	ListOutcomesSince(ctx context.Context, tenant string, since time.Time) ([]models.Outcome, error)
	ListPatternsByType(ctx context.Context, tenant string, typ models.PatternType) ([]models.SuccessPattern, error)
	CreatePattern(ctx context.Context, p models.SuccessPattern) (*models.SuccessPattern, error)
	UpdatePattern(ctx context.Context, id string, p models.SuccessPattern) (*models.SuccessPattern, error)
	DeletePattern(ctx context.Context, id string) error
	TopPatterns(ctx context.Context, tenant string, limit int) ([]models.SuccessPattern, error)
}

var patternTypes = []models.PatternType{
	models.PatternWordUsage,
	models.PatternCallToAction,
	models.PatternTiming,
}

// Engine runs pattern mining and keeps the stored set deduplicated.
// It lives off the message-handling hot path; the orchestrator only
// reads its output through TopPatterns.
type Engine struct {
	store   Store
	tenants *config.Tenants
	logger  *slog.Logger

	mu       sync.Mutex
	lastMine map[string]time.Time
}

// NewEngine creates a pattern learning engine.
func NewEngine(store Store, tenants *config.Tenants, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		tenants:  tenants,
		logger:   logger,
		lastMine: make(map[string]time.Time),
	}
}

// MineAll runs one incremental mining pass for every configured
// tenant. Wired to the cron schedule in serve.
func (e *Engine) MineAll(ctx context.Context) {
	for _, tenant := range e.tenants.IDs() {
		if _, err := e.MineTenant(ctx, tenant); err != nil {
			e.logger.Error("pattern mining failed", "tenant", tenant, "error", err)
		}
	}
}

// MineTenant mines outcomes recorded since the previous pass, upserts
// the candidates and reconciles duplicates. Returns how many
// candidates were processed.
func (e *Engine) MineTenant(ctx context.Context, tenant string) (int, error) {
	e.mu.Lock()
	since := e.lastMine[tenant]
	e.mu.Unlock()

	outcomes, err := e.store.ListOutcomesSince(ctx, tenant, since)
	if err != nil {
		return 0, fmt.Errorf("load outcomes: %w", err)
	}
	if len(outcomes) == 0 {
		return 0, nil
	}

	candidates := Mine(tenant, outcomes)
	if err := e.Upsert(ctx, candidates, tenant); err != nil {
		return 0, err
	}

	// Reconciliation catches duplicates that concurrent upserts raced
	// into existence; running it after every pass keeps the no-near-
	// duplicate invariant a steady-state property.
	if err := e.Reconcile(ctx, tenant); err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.lastMine[tenant] = time.Now()
	e.mu.Unlock()

	e.logger.Info("pattern mining pass complete",
		"tenant", tenant, "outcomes", len(outcomes), "candidates", len(candidates))
	return len(candidates), nil
}

// Upsert stores candidates, merging each into the most similar
// existing pattern of the same type when similarity reaches the
// tenant's merge threshold, inserting otherwise. Merging sums sample
// sizes and recomputes strength as the sample-size-weighted average.
func (e *Engine) Upsert(ctx context.Context, candidates []models.SuccessPattern, tenant string) error {
	threshold := e.tenants.Get(tenant).MergeThreshold

	for _, candidate := range candidates {
		existing, err := e.store.ListPatternsByType(ctx, tenant, candidate.Type)
		if err != nil {
			return fmt.Errorf("list patterns: %w", err)
		}

		bestIdx, bestSim := -1, 0.0
		for i, p := range existing {
			if sim := Similarity(p, candidate); sim > bestSim {
				bestIdx, bestSim = i, sim
			}
		}

		if bestIdx >= 0 && bestSim >= threshold {
			merged := existing[bestIdx]
			merged.Merge(candidate)
			id := models.MustRecordIDString(merged.ID)
			if _, err := e.store.UpdatePattern(ctx, id, merged); err != nil {
				return fmt.Errorf("merge pattern: %w", err)
			}
			e.logger.Debug("merged near-duplicate pattern",
				"tenant", tenant, "type", string(candidate.Type), "similarity", bestSim)
			continue
		}

		if _, err := e.store.CreatePattern(ctx, candidate); err != nil {
			return fmt.Errorf("create pattern: %w", err)
		}
	}
	return nil
}

// Reconcile re-scans each pattern type and folds together any pair
// whose similarity is at or above the merge threshold, repeating until
// a fixpoint so the stored set converges even when merges themselves
// create new overlaps.
func (e *Engine) Reconcile(ctx context.Context, tenant string) error {
	threshold := e.tenants.Get(tenant).MergeThreshold

	for _, typ := range patternTypes {
		for {
			patterns, err := e.store.ListPatternsByType(ctx, tenant, typ)
			if err != nil {
				return fmt.Errorf("list patterns: %w", err)
			}

			merged, err := e.mergeFirstDuplicate(ctx, patterns, threshold)
			if err != nil {
				return err
			}
			if !merged {
				break
			}
		}
	}
	return nil
}

// mergeFirstDuplicate merges one duplicate pair if any exists.
// Reports whether a merge happened so the caller can rescan.
func (e *Engine) mergeFirstDuplicate(ctx context.Context, patterns []models.SuccessPattern, threshold float64) (bool, error) {
	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			if Similarity(patterns[i], patterns[j]) < threshold {
				continue
			}

			survivor := patterns[i]
			survivor.Merge(patterns[j])
			survivorID := models.MustRecordIDString(survivor.ID)
			duplicateID := models.MustRecordIDString(patterns[j].ID)

			if _, err := e.store.UpdatePattern(ctx, survivorID, survivor); err != nil {
				return false, fmt.Errorf("reconcile update: %w", err)
			}
			if err := e.store.DeletePattern(ctx, duplicateID); err != nil {
				return false, fmt.Errorf("reconcile delete: %w", err)
			}

			e.logger.Info("reconciled duplicate patterns",
				"survivor", survivorID, "duplicate", duplicateID)
			return true, nil
		}
	}
	return false, nil
}

// TopPatterns returns the tenant's strongest stored patterns for
// prompt hints.
func (e *Engine) TopPatterns(ctx context.Context, tenant string, limit int) ([]models.SuccessPattern, error) {
	return e.store.TopPatterns(ctx, tenant, limit)
}
