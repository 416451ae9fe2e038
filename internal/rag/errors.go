package rag

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a job identifier is unknown. Evicted and
// never-created identifiers are indistinguishable.
var ErrNotFound = errors.New("job not found")

// ValidationError reports malformed input rejected before any collaborator
// is invoked.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the named input field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// CollaboratorUnavailableError reports that a required external stage could
// not be reached. Fatal for the current ingest/query call.
type CollaboratorUnavailableError struct {
	Stage string
	Err   error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("%s collaborator unavailable: %v", e.Stage, e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() error {
	return e.Err
}

// NewCollaboratorUnavailable wraps err as a fatal stage failure.
func NewCollaboratorUnavailable(stage string, err error) *CollaboratorUnavailableError {
	return &CollaboratorUnavailableError{Stage: stage, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCollaboratorUnavailable reports whether err is a collaborator outage.
func IsCollaboratorUnavailable(err error) bool {
	var ce *CollaboratorUnavailableError
	return errors.As(err, &ce)
}
