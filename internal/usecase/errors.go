package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// ValidationError rejects one raw record before it enters the pipeline.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ResolutionError reports an identity map failure for a natural key.
type ResolutionError struct {
	Kind string
	Key  string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %q: %v", e.Kind, e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// UnresolvedReferenceError marks a row dropped because a required
// reference never resolved to an internal id.
type UnresolvedReferenceError struct {
	Field string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved required reference %s", e.Field)
}

// FetchError wraps a source failure. Transient failures are worth
// retrying, permanent ones are not.
type FetchError struct {
	Source    string
	Endpoint  string
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Source, e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError reports a whole-batch write failure, as opposed to
// per-row failures accounted inside a batch result.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth another attempt: a retryable
// source failure or an identity store failure.
func IsTransient(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	var re *ResolutionError
	return errors.As(err, &re)
}
