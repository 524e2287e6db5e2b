package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Services wrap these; the HTTP
// layer maps each to exactly one status code with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream marks a malformed or incomplete payload from an identity
	// provider — a provider-integration bug, not something the user can fix.
	ErrUpstream = errors.New("upstream provider error")
)

type AppError struct {
	Err     error  // sentinel classifying the error
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. two accounts racing to claim
// the same (provider, external id) pair. Callers are expected to retry the
// operation as a lookup before surfacing this.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict on %s", resource, key),
	}
}

// Unauthorized returns an AppError indicating the caller has no valid
// session. HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// MissingField reports a provider payload missing a required field.
// HTTP handlers map this to 502 Bad Gateway — the provider sent us garbage.
func MissingField(provider, field string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s profile is missing required field %q", provider, field),
		Field:   field,
	}
}
