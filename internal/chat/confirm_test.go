package chat

import (
	"context"
	"errors"
	"testing"
)

// countingCall is a ModelCall fake that records how often the model
// tier was reached.
type countingCall struct {
	calls  int
	answer string
	err    error
}

func (c *countingCall) call(ctx context.Context, system, user string) (string, error) {
	c.calls++
	return c.answer, c.err
}

func TestDetectConfirmationKeywordShortCircuit(t *testing.T) {
	tenant := testTenant()
	fake := &countingCall{answer: "NO"}

	for _, message := range []string{"تمام", "ماشي", "اوك", "yes", "تمام يا باشا"} {
		got := DetectConfirmation(context.Background(), message, nil, tenant, fake.call, testLogger())
		if !got.Confirming {
			t.Errorf("Expected %q to confirm", message)
		}
		if got.Method != MethodKeyword {
			t.Errorf("Expected keyword method for %q, got %q", message, got.Method)
		}
	}
	if fake.calls != 0 {
		t.Errorf("Keyword tier must not reach the model, got %d calls", fake.calls)
	}
}

func TestDetectConfirmationShortMessageSkipsModelTier(t *testing.T) {
	tenant := testTenant()
	fake := &countingCall{answer: "YES"}

	got := DetectConfirmation(context.Background(), "لا", nil, tenant, fake.call, testLogger())

	if got.Confirming {
		t.Errorf("Expected short non-affirmation to not confirm")
	}
	if fake.calls != 0 {
		t.Errorf("Message below model-tier threshold made %d calls", fake.calls)
	}
}

func TestDetectConfirmationModelTierYes(t *testing.T) {
	tenant := testTenant()
	fake := &countingCall{answer: " yes \n"}

	got := DetectConfirmation(context.Background(), "اه خلاص نفذ الاوردر ده يلا بينا", nil, tenant, fake.call, testLogger())

	if !got.Confirming {
		t.Errorf("Expected model tier YES to confirm")
	}
	if got.Method != MethodModel {
		t.Errorf("Expected model method, got %q", got.Method)
	}
	if fake.calls != 1 {
		t.Errorf("Expected exactly one model call, got %d", fake.calls)
	}
}

func TestDetectConfirmationModelFailureDegradesToNo(t *testing.T) {
	tenant := testTenant()
	fake := &countingCall{err: errors.New("provider down")}

	got := DetectConfirmation(context.Background(), "اه خلاص نفذ الاوردر ده يلا بينا", nil, tenant, fake.call, testLogger())

	// A broken model tier must never fabricate an order commit.
	if got.Confirming {
		t.Errorf("Expected model failure to degrade to not confirming")
	}
}

func TestMatchAffirmationLeadingTokenOnly(t *testing.T) {
	tenant := testTenant()

	if matchAffirmation("يا تمام يا مش تمام", tenant) {
		t.Errorf("Affirmation token in non-leading position must not match")
	}
	if matchAffirmation("مش عايز حاجة تانية خالص شكرا ليك", tenant) {
		t.Errorf("Long message must not keyword-match")
	}
}
