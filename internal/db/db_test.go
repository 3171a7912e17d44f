// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nfadel/souqchat-go/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	// Start SurrealDB container
	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	// Get container host and port
	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	// Connect to test database
	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	// Initialize schema
	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

// =============================================================================
// MEMORY TESTS
// =============================================================================

func TestCreateAndListMemory(t *testing.T) {
	ctx := context.Background()

	created, err := testDB.CreateMemory(ctx, models.MemoryRecord{
		Tenant:       "kicks",
		Conversation: "conv-mem-1",
		Participant:  "p1",
		Message:      "عايز الكوتشي الأبيض",
		Response:     "اتفضل يا فندم",
		Intent:       models.IntentOrdering,
		Sentiment:    models.SentimentNeutral,
	})
	if err != nil {
		t.Fatalf("CreateMemory failed: %v", err)
	}
	if created.Message != "عايز الكوتشي الأبيض" {
		t.Errorf("Expected message round-tripped, got %q", created.Message)
	}
	if created.Created.IsZero() {
		t.Errorf("Expected server-side created timestamp")
	}

	records, err := testDB.RecentMemory(ctx, "conv-mem-1", "p1", 10, 24*time.Hour)
	if err != nil {
		t.Fatalf("RecentMemory failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Intent != models.IntentOrdering {
		t.Errorf("Expected intent preserved, got %q", records[0].Intent)
	}
}

func TestRecentMemoryScopedToConversation(t *testing.T) {
	ctx := context.Background()

	for _, conv := range []string{"conv-scope-a", "conv-scope-b"} {
		if _, err := testDB.CreateMemory(ctx, models.MemoryRecord{
			Tenant:       "kicks",
			Conversation: conv,
			Participant:  "p1",
			Message:      "رسالة في " + conv,
		}); err != nil {
			t.Fatalf("CreateMemory failed: %v", err)
		}
	}

	records, err := testDB.RecentMemory(ctx, "conv-scope-a", "p1", 10, 24*time.Hour)
	if err != nil {
		t.Fatalf("RecentMemory failed: %v", err)
	}
	for _, rec := range records {
		if rec.Conversation != "conv-scope-a" {
			t.Errorf("Leaked record from %q", rec.Conversation)
		}
	}
}

func TestRecentMemoryLimit(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := testDB.CreateMemory(ctx, models.MemoryRecord{
			Tenant:       "kicks",
			Conversation: "conv-limit",
			Participant:  "p1",
			Message:      fmt.Sprintf("turn %d", i),
		}); err != nil {
			t.Fatalf("CreateMemory failed: %v", err)
		}
	}

	records, err := testDB.RecentMemory(ctx, "conv-limit", "p1", 3, 24*time.Hour)
	if err != nil {
		t.Fatalf("RecentMemory failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected limit 3 applied, got %d", len(records))
	}
}

// =============================================================================
// CREDENTIAL TESTS
// =============================================================================

func TestCreateCredentialStartsInactive(t *testing.T) {
	ctx := context.Background()

	cred, err := testDB.CreateCredential(ctx, models.Credential{
		Tenant:     "pool-a",
		Secret:     "sk-one",
		Models:     []string{"gpt-4o-mini"},
		DailyLimit: 100,
	})
	if err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}
	if cred.Active {
		t.Errorf("New credentials must start inactive")
	}
	if cred.UsedToday != 0 {
		t.Errorf("Expected zero usage, got %d", cred.UsedToday)
	}
}

func TestActivateCredentialDeactivatesSiblings(t *testing.T) {
	ctx := context.Background()

	first, err := testDB.CreateCredential(ctx, models.Credential{Tenant: "pool-b", Secret: "sk-1", DailyLimit: 10})
	if err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}
	second, err := testDB.CreateCredential(ctx, models.Credential{Tenant: "pool-b", Secret: "sk-2", DailyLimit: 10})
	if err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}

	if _, err := testDB.ActivateCredential(ctx, "pool-b", models.MustRecordIDString(first.ID), false); err != nil {
		t.Fatalf("ActivateCredential failed: %v", err)
	}
	activated, err := testDB.ActivateCredential(ctx, "pool-b", models.MustRecordIDString(second.ID), false)
	if err != nil {
		t.Fatalf("ActivateCredential failed: %v", err)
	}
	if !activated.Active {
		t.Errorf("Expected second credential active")
	}

	creds, err := testDB.ListCredentials(ctx, "pool-b")
	if err != nil {
		t.Fatalf("ListCredentials failed: %v", err)
	}
	activeCount := 0
	for _, c := range creds {
		if c.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("Expected exactly 1 active credential, got %d", activeCount)
	}
}

func TestAddCredentialUsageConcurrent(t *testing.T) {
	ctx := context.Background()

	cred, err := testDB.CreateCredential(ctx, models.Credential{Tenant: "pool-c", Secret: "sk-c", DailyLimit: 10000})
	if err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}
	id := models.MustRecordIDString(cred.ID)

	// The counter update is a single storage-side statement, so
	// concurrent writers must never lose increments.
	const goroutines = 10
	const perGoroutine = 10
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, err := testDB.AddCredentialUsage(ctx, id, 1); err != nil {
					t.Errorf("AddCredentialUsage failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	creds, err := testDB.ListCredentials(ctx, "pool-c")
	if err != nil {
		t.Fatalf("ListCredentials failed: %v", err)
	}
	if len(creds) != 1 {
		t.Fatalf("Expected 1 credential, got %d", len(creds))
	}
	if creds[0].UsedToday != goroutines*perGoroutine {
		t.Errorf("Expected %d usage, got %d (lost increments)", goroutines*perGoroutine, creds[0].UsedToday)
	}
}

func TestActivateWithResetClearsUsage(t *testing.T) {
	ctx := context.Background()

	cred, err := testDB.CreateCredential(ctx, models.Credential{Tenant: "pool-d", Secret: "sk-d", DailyLimit: 10})
	if err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}
	id := models.MustRecordIDString(cred.ID)

	if _, err := testDB.AddCredentialUsage(ctx, id, 7); err != nil {
		t.Fatalf("AddCredentialUsage failed: %v", err)
	}
	activated, err := testDB.ActivateCredential(ctx, "pool-d", id, true)
	if err != nil {
		t.Fatalf("ActivateCredential failed: %v", err)
	}
	if activated.UsedToday != 0 {
		t.Errorf("Expected usage reset, got %d", activated.UsedToday)
	}
}

// =============================================================================
// OUTCOME AND PATTERN TESTS
// =============================================================================

func TestCreateAndListOutcomes(t *testing.T) {
	ctx := context.Background()
	start := time.Now().Add(-time.Minute)

	if _, err := testDB.CreateOutcome(ctx, models.Outcome{
		Tenant:       "mine-a",
		Conversation: "conv-o1",
		Kind:         models.OutcomePurchase,
		Responses:    []string{"اطلب دلوقتي"},
	}); err != nil {
		t.Fatalf("CreateOutcome failed: %v", err)
	}

	outcomes, err := testDB.ListOutcomesSince(ctx, "mine-a", start)
	if err != nil {
		t.Fatalf("ListOutcomesSince failed: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("Expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Kind != models.OutcomePurchase {
		t.Errorf("Expected purchase, got %q", outcomes[0].Kind)
	}

	// A cutoff in the future excludes it.
	later, err := testDB.ListOutcomesSince(ctx, "mine-a", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ListOutcomesSince failed: %v", err)
	}
	if len(later) != 0 {
		t.Errorf("Expected no outcomes after future cutoff, got %d", len(later))
	}
}

func TestPatternLifecycle(t *testing.T) {
	ctx := context.Background()

	created, err := testDB.CreatePattern(ctx, models.SuccessPattern{
		Tenant:      "mine-b",
		Type:        models.PatternWordUsage,
		Description: "responses using مقاس close more sales",
		Strength:    0.6,
		Triggers:    []string{"مقاس"},
		SampleSize:  5,
	})
	if err != nil {
		t.Fatalf("CreatePattern failed: %v", err)
	}
	id := models.MustRecordIDString(created.ID)

	updated := *created
	updated.Strength = 0.7
	updated.SampleSize = 8
	if _, err := testDB.UpdatePattern(ctx, id, updated); err != nil {
		t.Fatalf("UpdatePattern failed: %v", err)
	}

	byType, err := testDB.ListPatternsByType(ctx, "mine-b", models.PatternWordUsage)
	if err != nil {
		t.Fatalf("ListPatternsByType failed: %v", err)
	}
	if len(byType) != 1 || byType[0].Strength != 0.7 {
		t.Errorf("Expected updated pattern, got %+v", byType)
	}

	top, err := testDB.TopPatterns(ctx, "mine-b", 5)
	if err != nil {
		t.Fatalf("TopPatterns failed: %v", err)
	}
	if len(top) != 1 {
		t.Errorf("Expected 1 top pattern, got %d", len(top))
	}

	if err := testDB.DeletePattern(ctx, id); err != nil {
		t.Fatalf("DeletePattern failed: %v", err)
	}
	gone, err := testDB.ListPatternsByType(ctx, "mine-b", models.PatternWordUsage)
	if err != nil {
		t.Fatalf("ListPatternsByType failed: %v", err)
	}
	if len(gone) != 0 {
		t.Errorf("Expected pattern deleted, got %d", len(gone))
	}
}
