package llm

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors classifying provider failures. The key pool reacts
// differently to each: quota and invalid-key failures deactivate the
// credential, transient and timeout failures keep it usable.
var (
	ErrQuotaExceeded     = errors.New("provider quota exceeded")
	ErrInvalidCredential = errors.New("provider credential invalid")
	ErrTimeout           = errors.New("provider call timed out")
	ErrTransient         = errors.New("provider transient failure")
)

// FailureKind tags the broad class of a provider failure.
type FailureKind string

const (
	FailureQuota      FailureKind = "quota"
	FailureInvalidKey FailureKind = "invalid_key"
	FailureTimeout    FailureKind = "timeout"
	FailureTransient  FailureKind = "transient"
)

// Fatal reports whether the failure should deactivate the credential.
func (k FailureKind) Fatal() bool {
	return k == FailureQuota || k == FailureInvalidKey
}

// Classify maps a provider error onto a FailureKind. Unknown errors
// are treated as transient so a single odd response never burns a key.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return FailureQuota
	case errors.Is(err, ErrInvalidCredential):
		return FailureInvalidKey
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	default:
		return FailureTransient
	}
}

// wrapProviderError attaches the matching sentinel to a raw provider
// error by inspecting its message. Providers disagree on error shapes,
// so string matching on the well-known markers is the common seam.
func wrapProviderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "insufficient_quota"):
		return errors.Join(ErrQuotaExceeded, err)
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "incorrect api key"),
		strings.Contains(msg, "permission"),
		strings.Contains(msg, "unauthorized"):
		return errors.Join(ErrInvalidCredential, err)
	case strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "timeout"):
		return errors.Join(ErrTimeout, err)
	default:
		return errors.Join(ErrTransient, err)
	}
}
