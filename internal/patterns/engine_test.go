package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nfadel/souqchat-go/internal/config"
	"github.com/nfadel/souqchat-go/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mergeTenants resolves "kicks" with the default merge threshold,
// which the near-duplicate fixtures must clear on their own.
func mergeTenants() *config.Tenants {
	return config.NewTenants(config.Tenant{ID: "kicks"})
}

// fakePatternStore is an in-memory Store for engine tests.
type fakePatternStore struct {
	mu       sync.Mutex
	patterns map[string]models.SuccessPattern
	outcomes []models.Outcome
	nextID   int
}

func newFakePatternStore() *fakePatternStore {
	return &fakePatternStore{patterns: make(map[string]models.SuccessPattern)}
}

func (s *fakePatternStore) ListOutcomesSince(ctx context.Context, tenant string, since time.Time) ([]models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Outcome
	for _, o := range s.outcomes {
		if o.Tenant == tenant {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakePatternStore) ListPatternsByType(ctx context.Context, tenant string, typ models.PatternType) ([]models.SuccessPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.patterns {
		if p.Tenant == tenant && p.Type == typ {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]models.SuccessPattern, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.patterns[id])
	}
	return out, nil
}

func (s *fakePatternStore) CreatePattern(ctx context.Context, p models.SuccessPattern) (*models.SuccessPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("p%03d", s.nextID)
	p.ID = surrealmodels.RecordID{Table: "pattern", ID: id}
	s.patterns[id] = p
	return &p, nil
}

func (s *fakePatternStore) UpdatePattern(ctx context.Context, id string, p models.SuccessPattern) (*models.SuccessPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patterns[id]; !ok {
		return nil, fmt.Errorf("pattern %s not found", id)
	}
	p.ID = surrealmodels.RecordID{Table: "pattern", ID: id}
	s.patterns[id] = p
	return &p, nil
}

func (s *fakePatternStore) DeletePattern(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patterns[id]; !ok {
		return fmt.Errorf("pattern %s not found", id)
	}
	delete(s.patterns, id)
	return nil
}

func (s *fakePatternStore) TopPatterns(ctx context.Context, tenant string, limit int) ([]models.SuccessPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SuccessPattern
	for _, p := range s.patterns {
		if p.Tenant == tenant {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakePatternStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patterns)
}

func (s *fakePatternStore) all() []models.SuccessPattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SuccessPattern
	for _, p := range s.patterns {
		out = append(out, p)
	}
	return out
}

func TestUpsertMergesNearDuplicate(t *testing.T) {
	store := newFakePatternStore()
	engine := NewEngine(store, mergeTenants(), testLogger())
	ctx := context.Background()

	first := models.SuccessPattern{
		Tenant:      "kicks",
		Type:        models.PatternWordUsage,
		Description: "الرد بكلمة مقاس يزيد معدل النجاح بـ 25%",
		Strength:    0.25,
		Triggers:    []string{"مقاس"},
		SampleSize:  20,
	}
	second := models.SuccessPattern{
		Tenant:      "kicks",
		Type:        models.PatternWordUsage,
		Description: "الرد بكلمة مقاس يزيد معدل النجاح بـ 30%",
		Strength:    0.30,
		Triggers:    []string{"مقاس"},
		SampleSize:  10,
	}

	if err := engine.Upsert(ctx, []models.SuccessPattern{first}, "kicks"); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	if err := engine.Upsert(ctx, []models.SuccessPattern{second}, "kicks"); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	if store.count() != 1 {
		t.Fatalf("Expected near-duplicates merged into 1 pattern, got %d", store.count())
	}

	merged := store.all()[0]
	if merged.SampleSize != 30 {
		t.Errorf("Expected summed sample size 30, got %d", merged.SampleSize)
	}
	// Weighted average: (0.25*20 + 0.30*10) / 30
	want := (0.25*20 + 0.30*10) / 30
	if math.Abs(merged.Strength-want) > 1e-9 {
		t.Errorf("Expected weighted strength %v, got %v", want, merged.Strength)
	}
}

func TestUpsertInsertsDistinctPatterns(t *testing.T) {
	store := newFakePatternStore()
	engine := NewEngine(store, mergeTenants(), testLogger())
	ctx := context.Background()

	candidates := []models.SuccessPattern{
		{Tenant: "kicks", Type: models.PatternWordUsage, Description: "responses using شحن close more sales", Strength: 0.6, Triggers: []string{"شحن"}, SampleSize: 5},
		{Tenant: "kicks", Type: models.PatternWordUsage, Description: "responses mentioning خصم convert browsers", Strength: 0.4, Triggers: []string{"خصم"}, SampleSize: 5},
	}
	if err := engine.Upsert(ctx, candidates, "kicks"); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if store.count() != 2 {
		t.Errorf("Expected 2 distinct patterns, got %d", store.count())
	}
}

func TestReconcileConvergesToFixpoint(t *testing.T) {
	store := newFakePatternStore()
	engine := NewEngine(store, mergeTenants(), testLogger())
	ctx := context.Background()

	// Seed three copies of the same observation directly, simulating
	// concurrent upserts that raced past each other.
	for i := 0; i < 3; i++ {
		_, err := store.CreatePattern(ctx, models.SuccessPattern{
			Tenant:      "kicks",
			Type:        models.PatternWordUsage,
			Description: fmt.Sprintf("الرد بكلمة مقاس يزيد معدل النجاح بـ %d%%", 25+i),
			Strength:    0.25,
			Triggers:    []string{"مقاس"},
			SampleSize:  10,
		})
		if err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	if err := engine.Reconcile(ctx, "kicks"); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if store.count() != 1 {
		t.Errorf("Expected reconcile to converge to 1 pattern, got %d", store.count())
	}
	if store.all()[0].SampleSize != 30 {
		t.Errorf("Expected samples preserved through merges, got %d", store.all()[0].SampleSize)
	}

	// A second pass finds nothing left to do.
	if err := engine.Reconcile(ctx, "kicks"); err != nil {
		t.Fatalf("Second reconcile failed: %v", err)
	}
	if store.count() != 1 {
		t.Errorf("Reconcile not idempotent at fixpoint, got %d", store.count())
	}
}

func TestMineTenantEndToEnd(t *testing.T) {
	store := newFakePatternStore()
	store.outcomes = []models.Outcome{
		{Tenant: "kicks", Kind: models.OutcomePurchase, Responses: []string{"المقاس متوفر، اطلب دلوقتي"}},
		{Tenant: "kicks", Kind: models.OutcomePurchase, Responses: []string{"مقاس 40 متوفر، اطلب دلوقتي"}},
	}
	engine := NewEngine(store, mergeTenants(), testLogger())

	n, err := engine.MineTenant(context.Background(), "kicks")
	if err != nil {
		t.Fatalf("MineTenant failed: %v", err)
	}
	if n == 0 {
		t.Fatalf("Expected candidates mined from positive outcomes")
	}
	if store.count() == 0 {
		t.Errorf("Expected patterns persisted")
	}
}
