package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Memory window modes. "recent" keeps prompts short for quick sales
// conversations; "all" opts into a longer recall window.
const (
	MemoryModeRecent = "recent"
	MemoryModeAll    = "all"
)

// ProductSpec describes one product in the tenant's vocabulary, with
// the aliases, colors and sizes customers use for it.
type ProductSpec struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases,omitempty"`
	Colors  []string `yaml:"colors,omitempty"`
	Sizes   []string `yaml:"sizes,omitempty"`
}

// Tenant holds per-tenant behavioral settings.
type Tenant struct {
	ID            string `yaml:"id"`
	Persona       string `yaml:"persona"`
	BusinessFacts string `yaml:"business_facts"`
	FallbackReply string `yaml:"fallback_reply"`

	// Memory window bounds
	MemoryMode        string `yaml:"memory_mode"`
	MemoryMaxAgeHours int    `yaml:"memory_max_age_hours"`
	RetentionDays     int    `yaml:"retention_days"`

	// Confirmation detection
	AffirmationTokens []string `yaml:"affirmation_tokens"`
	// MinModelLength gates the model tier: shorter messages that miss
	// the keyword tier are treated as not confirming.
	MinModelLength int `yaml:"min_model_length"`

	// Slot-filling vocabulary
	Products []ProductSpec `yaml:"products"`
	Colors   []string      `yaml:"colors"`
	Sizes    []string      `yaml:"sizes"`

	// Pattern learning
	MergeThreshold float64 `yaml:"merge_threshold"`
}

// MemoryLimit returns the turn-count bound for the tenant's window.
func (t Tenant) MemoryLimit() int {
	if t.MemoryMode == MemoryModeAll {
		return 15
	}
	return 3
}

// Tenants is the set of configured tenants keyed by ID.
type Tenants struct {
	byID map[string]Tenant
}

// LoadTenants reads tenant settings from a YAML file.
func LoadTenants(path string) (*Tenants, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenant file: %w", err)
	}
	var doc struct {
		Tenants []Tenant `yaml:"tenants"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tenant file: %w", err)
	}

	ts := &Tenants{byID: make(map[string]Tenant, len(doc.Tenants))}
	for _, t := range doc.Tenants {
		if t.ID == "" {
			return nil, fmt.Errorf("tenant file: tenant without id")
		}
		ts.byID[t.ID] = withDefaults(t)
	}
	return ts, nil
}

// NewTenants wraps explicit tenant settings (for tests and embedding).
func NewTenants(tenants ...Tenant) *Tenants {
	ts := &Tenants{byID: make(map[string]Tenant, len(tenants))}
	for _, t := range tenants {
		ts.byID[t.ID] = withDefaults(t)
	}
	return ts
}

// Get returns the settings for a tenant, falling back to defaults for
// unknown tenants so a misconfigured webhook never panics the turn.
func (ts *Tenants) Get(id string) Tenant {
	if t, ok := ts.byID[id]; ok {
		return t
	}
	return withDefaults(Tenant{ID: id})
}

// IDs returns the configured tenant IDs.
func (ts *Tenants) IDs() []string {
	ids := make([]string, 0, len(ts.byID))
	for id := range ts.byID {
		ids = append(ids, id)
	}
	return ids
}

func withDefaults(t Tenant) Tenant {
	if t.MemoryMode == "" {
		t.MemoryMode = MemoryModeRecent
	}
	if t.MemoryMaxAgeHours <= 0 {
		t.MemoryMaxAgeHours = 24
	}
	if t.MemoryMaxAgeHours > 48 {
		t.MemoryMaxAgeHours = 48
	}
	if t.RetentionDays <= 0 {
		t.RetentionDays = 30
	}
	if t.MinModelLength <= 0 {
		t.MinModelLength = 12
	}
	if t.MergeThreshold <= 0 || t.MergeThreshold > 1 {
		t.MergeThreshold = 0.85
	}
	if t.FallbackReply == "" {
		t.FallbackReply = "معلش، حصلت مشكلة بسيطة عندنا. ممكن تبعت رسالتك تاني بعد شوية؟"
	}
	if len(t.AffirmationTokens) == 0 {
		t.AffirmationTokens = []string{
			"yes", "ok", "okay", "sure", "confirmed", "deal",
			"تمام", "اه", "ايوه", "ايوة", "موافق", "اوك", "ماشي", "اكيد", "يلا",
		}
	}
	return t
}
