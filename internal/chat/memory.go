package chat

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/models"
)

// memoryDB is the persistence surface the memory store needs.
// *db.Client satisfies it; tests use in-memory fakes.
type memoryDB interface {
	CreateMemory(ctx context.Context, rec models.MemoryRecord) (*models.MemoryRecord, error)
	RecentMemory(ctx context.Context, conversation, participant string, limit int, maxAge time.Duration) ([]models.MemoryRecord, error)
	PruneMemory(ctx context.Context, tenant string, olderThan time.Duration) (int, error)
}

// MemoryStore is the bounded, queryable conversation history. Records
// are append-only; the window is bounded by both a count limit and an
// age limit so prompts never grow without bound.
type MemoryStore struct {
	db     memoryDB
	logger *slog.Logger
}

// NewMemoryStore creates a memory store over the given persistence.
func NewMemoryStore(db memoryDB, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{db: db, logger: logger}
}

// Append stores a completed turn.
func (s *MemoryStore) Append(ctx context.Context, rec models.MemoryRecord) error {
	if _, err := s.db.CreateMemory(ctx, rec); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}
	return nil
}

// Window returns the tenant-bounded context window for a conversation,
// newest last.
func (s *MemoryStore) Window(ctx context.Context, tenant config.Tenant, conversation, participant string) ([]models.MemoryRecord, error) {
	limit := tenant.MemoryLimit()
	maxAge := time.Duration(tenant.MemoryMaxAgeHours) * time.Hour

	records, err := s.db.RecentMemory(ctx, conversation, participant, limit, maxAge)
	if err != nil {
		return nil, fmt.Errorf("memory window: %w", err)
	}
	return BoundWindow(records, limit, maxAge, time.Now()), nil
}

// historyLimit caps a full-history fetch. It sits far above any
// plausible conversation length; the real bound is the retention
// horizon.
const historyLimit = 500

// History returns every retained turn for a conversation, oldest
// first, bounded by the tenant retention horizon rather than the
// prompt window. Outcome collection uses it so long conversations
// contribute more than their last few responses.
func (s *MemoryStore) History(ctx context.Context, tenant config.Tenant, conversation, participant string) ([]models.MemoryRecord, error) {
	horizon := time.Duration(tenant.RetentionDays) * 24 * time.Hour

	records, err := s.db.RecentMemory(ctx, conversation, participant, historyLimit, horizon)
	if err != nil {
		return nil, fmt.Errorf("memory history: %w", err)
	}
	return BoundWindow(records, historyLimit, horizon, time.Now()), nil
}

// Prune deletes records past the tenant's retention horizon.
func (s *MemoryStore) Prune(ctx context.Context, tenant config.Tenant) (int, error) {
	horizon := time.Duration(tenant.RetentionDays) * 24 * time.Hour
	n, err := s.db.PruneMemory(ctx, tenant.ID, horizon)
	if err != nil {
		return 0, fmt.Errorf("prune memory: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned conversation memory", "tenant", tenant.ID, "deleted", n)
	}
	return n, nil
}

// BoundWindow applies the count and age bounds to candidate records
// and orders them oldest to newest. It is a deterministic function of
// its inputs: identical records, limit, maxAge and now always produce
// the identical window. Ties on creation time break on record ID.
func BoundWindow(records []models.MemoryRecord, limit int, maxAge time.Duration, now time.Time) []models.MemoryRecord {
	cutoff := now.Add(-maxAge)

	kept := make([]models.MemoryRecord, 0, len(records))
	for _, rec := range records {
		if rec.Created.After(cutoff) {
			kept = append(kept, rec)
		}
	}

	slices.SortFunc(kept, func(a, b models.MemoryRecord) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		aID, _ := models.RecordIDString(a.ID)
		bID, _ := models.RecordIDString(b.ID)
		return strings.Compare(aID, bID)
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
