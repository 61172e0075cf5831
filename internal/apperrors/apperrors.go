package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrConflict      = errors.New("resource conflict")

	ErrInvalidRequest = errors.New("invalid request body")
	ErrValidation     = errors.New("validation failed")

	ErrForbidden = errors.New("forbidden")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPrecondition      = errors.New("precondition failed")

	ErrJobCodeTaken = errors.New("job code already taken")
	ErrUpstream     = errors.New("upstream provider failure")
)

// TransitionError reports an (state, event) pair that is not listed in a
// workflow table.
type TransitionError struct {
	Entity string
	From   string
	Event  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event '%s' is not allowed from '%s'", e.Entity, e.Event, e.From)
}
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// PreconditionError is a hard business-rule violation, e.g. a final price that
// does not exceed the deposit.
type PreconditionError struct{ Reason string }

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}
func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

// UpstreamError wraps a failed call to an external provider.
type UpstreamError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
func (e *UpstreamError) Unwrap() error        { return e.Err }

// ValidationError carries the first offending field of a rejected payload.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field '%s' failed on '%s'", e.Field, e.Rule)
}
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
