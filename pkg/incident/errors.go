package incident

import (
	"errors"
	"fmt"
)

// Kind classifies the failures this module reports, so callers can
// branch on category without string-matching error text.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindToolFailure   Kind = "tool_failure"
	KindExternalCall  Kind = "external_call"
	KindRateLimited   Kind = "rate_limited"
	KindCheckpoint    Kind = "checkpoint"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// TriageError wraps an underlying error with a Kind and a Retryable
// hint, mirroring pkg/httpclient's RetryableError but generalized
// beyond HTTP transport to every failure surface in this module.
type TriageError struct {
	Kind      Kind
	Err       error
	Retryable bool
}

func (e *TriageError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TriageError) Unwrap() error { return e.Err }

func (e *TriageError) IsRetryable() bool { return e.Retryable }

// Wrap builds a TriageError of the given kind. retryable should be true
// only for kinds the caller expects transient backends to clear on
// their own (external_call, rate_limited).
func Wrap(kind Kind, err error, retryable bool) *TriageError {
	return &TriageError{Kind: kind, Err: err, Retryable: retryable}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *TriageError, returning ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var te *TriageError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
