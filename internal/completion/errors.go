package completion

import "fmt"

// Kind classifies completion failures; it decides retry behavior.
type Kind string

const (
	// KindRateLimited and KindUnavailable are retried with bounded
	// exponential backoff by WithRetry.
	KindRateLimited Kind = "rate_limited"
	KindUnavailable Kind = "unavailable"

	// KindInvalidResponse (schema mismatch) and KindAuthFailed are never
	// retried and surface as terminal stage failures.
	KindInvalidResponse Kind = "invalid_response"
	KindAuthFailed      Kind = "auth_failed"
)

// Error is a classified completion failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("completion %s", e.Kind)
	}
	return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the error kind is worth retrying.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindUnavailable
}

// NewError wraps err with the given kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
