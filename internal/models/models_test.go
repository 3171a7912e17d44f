package models

import (
	"reflect"
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestRecordIDString(t *testing.T) {
	id := surrealmodels.RecordID{Table: "credential", ID: "abc123"}
	got, err := RecordIDString(id)
	if err != nil {
		t.Fatalf("RecordIDString failed: %v", err)
	}
	if got != "abc123" {
		t.Errorf("RecordIDString = %q, want %q", got, "abc123")
	}

	bad := surrealmodels.RecordID{Table: "credential", ID: 42}
	if _, err := RecordIDString(bad); err == nil {
		t.Errorf("Expected error for non-string ID")
	}
}

func TestCredentialExhausted(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{"under limit", Credential{DailyLimit: 100, UsedToday: 99}, false},
		{"at limit", Credential{DailyLimit: 100, UsedToday: 100}, true},
		{"over limit", Credential{DailyLimit: 100, UsedToday: 150}, true},
		{"unlimited", Credential{DailyLimit: 0, UsedToday: 100000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.Exhausted(); got != tt.want {
				t.Errorf("Exhausted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPatternMerge(t *testing.T) {
	a := SuccessPattern{Strength: 0.25, SampleSize: 20, Triggers: []string{"مقاس"}}
	b := SuccessPattern{Strength: 0.30, SampleSize: 10, Triggers: []string{"مقاس", "متوفر"}}

	a.Merge(b)

	if a.SampleSize != 30 {
		t.Errorf("Expected summed sample size 30, got %d", a.SampleSize)
	}
	want := (0.25*20 + 0.30*10) / 30
	if a.Strength != want {
		t.Errorf("Expected weighted strength %v, got %v", want, a.Strength)
	}
	if !reflect.DeepEqual(a.Triggers, []string{"مقاس", "متوفر"}) {
		t.Errorf("Expected trigger union, got %v", a.Triggers)
	}
}

func TestOutcomeKindPositive(t *testing.T) {
	if !OutcomePurchase.Positive() || !OutcomeSatisfied.Positive() {
		t.Errorf("Purchase and satisfied must count as positive")
	}
	if OutcomeAbandoned.Positive() || OutcomeEscalated.Positive() {
		t.Errorf("Abandoned and escalated must not count as positive")
	}
}
