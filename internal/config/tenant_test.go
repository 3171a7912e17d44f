package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTenantDefaults(t *testing.T) {
	tenant := NewTenants(Tenant{ID: "bare"}).Get("bare")

	if tenant.MemoryMode != MemoryModeRecent {
		t.Errorf("Expected recent memory mode, got %q", tenant.MemoryMode)
	}
	if tenant.MemoryMaxAgeHours != 24 {
		t.Errorf("Expected 24h max age, got %d", tenant.MemoryMaxAgeHours)
	}
	if tenant.MinModelLength != 12 {
		t.Errorf("Expected model-tier threshold 12, got %d", tenant.MinModelLength)
	}
	if tenant.MergeThreshold != 0.85 {
		t.Errorf("Expected merge threshold 0.85, got %v", tenant.MergeThreshold)
	}
	if tenant.FallbackReply == "" {
		t.Errorf("Expected a default fallback reply")
	}
	if len(tenant.AffirmationTokens) == 0 {
		t.Errorf("Expected default affirmation tokens")
	}
}

func TestTenantMaxAgeClamp(t *testing.T) {
	tenant := NewTenants(Tenant{ID: "greedy", MemoryMaxAgeHours: 96}).Get("greedy")
	if tenant.MemoryMaxAgeHours != 48 {
		t.Errorf("Expected max age clamped to 48, got %d", tenant.MemoryMaxAgeHours)
	}
}

func TestTenantMemoryLimit(t *testing.T) {
	recent := NewTenants(Tenant{ID: "a"}).Get("a")
	if recent.MemoryLimit() != 3 {
		t.Errorf("Expected recent limit 3, got %d", recent.MemoryLimit())
	}
	all := NewTenants(Tenant{ID: "b", MemoryMode: MemoryModeAll}).Get("b")
	if all.MemoryLimit() != 15 {
		t.Errorf("Expected all limit 15, got %d", all.MemoryLimit())
	}
}

func TestTenantsGetUnknownFallsBackToDefaults(t *testing.T) {
	tenants := NewTenants(Tenant{ID: "known"})

	tenant := tenants.Get("stranger")
	if tenant.ID != "stranger" {
		t.Errorf("Expected fallback tenant to carry the requested ID, got %q", tenant.ID)
	}
	if tenant.FallbackReply == "" {
		t.Errorf("Expected fallback tenant to carry defaults")
	}
}

func TestLoadTenantsYAML(t *testing.T) {
	content := `
tenants:
  - id: kicks
    persona: "بائع ودود"
    memory_mode: all
    merge_threshold: 0.8
    products:
      - name: كوتشي
        aliases: [sneakers]
    colors: [أبيض, اسود]
    sizes: ["40", "41"]
`
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Write fixture failed: %v", err)
	}

	tenants, err := LoadTenants(path)
	if err != nil {
		t.Fatalf("LoadTenants failed: %v", err)
	}

	tenant := tenants.Get("kicks")
	if tenant.MemoryMode != MemoryModeAll {
		t.Errorf("Expected memory mode all, got %q", tenant.MemoryMode)
	}
	if tenant.MergeThreshold != 0.8 {
		t.Errorf("Expected merge threshold 0.8, got %v", tenant.MergeThreshold)
	}
	if len(tenant.Products) != 1 || tenant.Products[0].Name != "كوتشي" {
		t.Errorf("Expected product vocabulary loaded, got %+v", tenant.Products)
	}
	// Defaults still fill the unspecified fields.
	if tenant.MinModelLength != 12 {
		t.Errorf("Expected default model-tier threshold, got %d", tenant.MinModelLength)
	}
}

func TestLoadTenantsRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte("tenants:\n  - persona: x\n"), 0644); err != nil {
		t.Fatalf("Write fixture failed: %v", err)
	}
	if _, err := LoadTenants(path); err == nil {
		t.Errorf("Expected error for tenant without id")
	}
}
