package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want FailureKind
	}{
		{fmt.Errorf("generate: %w", ErrQuotaExceeded), FailureQuota},
		{fmt.Errorf("generate: %w", ErrInvalidCredential), FailureInvalidKey},
		{fmt.Errorf("generate: %w", ErrTimeout), FailureTimeout},
		{context.DeadlineExceeded, FailureTimeout},
		{errors.New("something odd"), FailureTransient},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFailureKindFatal(t *testing.T) {
	if !FailureQuota.Fatal() || !FailureInvalidKey.Fatal() {
		t.Errorf("Quota and invalid-key failures must be fatal")
	}
	if FailureTimeout.Fatal() || FailureTransient.Fatal() {
		t.Errorf("Timeout and transient failures must not be fatal")
	}
}

func TestWrapProviderErrorMarkers(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{"API returned 429 Too Many Requests", ErrQuotaExceeded},
		{"insufficient_quota: billing hard limit", ErrQuotaExceeded},
		{"status 401: invalid api key provided", ErrInvalidCredential},
		{"request unauthorized for this org", ErrInvalidCredential},
		{"context deadline exceeded while awaiting headers", ErrTimeout},
		{"connection reset by peer", ErrTransient},
	}
	for _, tc := range cases {
		wrapped := wrapProviderError(errors.New(tc.raw))
		if !errors.Is(wrapped, tc.want) {
			t.Errorf("wrapProviderError(%q) missing sentinel %v", tc.raw, tc.want)
		}
	}
}

func TestWrapProviderErrorKeepsOriginal(t *testing.T) {
	raw := errors.New("API returned 429")
	wrapped := wrapProviderError(raw)
	if !errors.Is(wrapped, raw) {
		t.Errorf("Expected original error preserved in the chain")
	}
	if wrapProviderError(nil) != nil {
		t.Errorf("Expected nil passthrough")
	}
}
