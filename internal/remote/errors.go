// Package remote defines the failure taxonomy and retry policy shared by
// every content store implementation. Adapters classify each failure into
// exactly one class; callers branch on the class, never on transport detail.
package remote

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound   = errors.New("remote: not found")
	ErrConflict   = errors.New("remote: version token conflict")
	ErrTransient  = errors.New("remote: transient failure")
	ErrValidation = errors.New("remote: invalid input")
)

// NotFoundError reports a missing path. On reads this is a real miss; on
// deletes callers treat it as success.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	if e == nil || e.Path == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: path=%s", ErrNotFound.Error(), e.Path)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports an optimistic-concurrency failure: the caller's
// expected token no longer matches the stored revision. Never auto-retried.
type ConflictError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s: path=%s expected=%s actual=%s", ErrConflict.Error(), e.Path, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransientError reports a failure expected to clear on its own, such as the
// read-after-write echo window or a 5xx from the remote host.
type TransientError struct {
	Path     string
	Attempts int
	Cause    error
}

func (e *TransientError) Error() string {
	if e == nil {
		return ErrTransient.Error()
	}
	return fmt.Sprintf("%s: path=%s attempts=%d cause=%v", ErrTransient.Error(), e.Path, e.Attempts, e.Cause)
}

func (e *TransientError) Unwrap() error { return ErrTransient }

// IsNotFound reports whether err is a missing-path failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is a version token mismatch.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsTransient reports whether err is retryable under the bounded policy.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// RetryPolicy bounds the backoff applied to transient read failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy covers the echo window after a new path is created.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   150 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Delay computes the exponential backoff for a zero-based attempt index.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
