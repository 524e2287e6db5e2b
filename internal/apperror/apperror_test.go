package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundMatchesSentinel(t *testing.T) {
	err := NotFound("account", "abc123")

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound() should match ErrNotFound via errors.Is")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("NotFound() should not match ErrValidation")
	}
}

func TestValidationFailedCarriesField(t *testing.T) {
	err := ValidationFailed("address", "address is not valid base58")

	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationFailed() should match ErrValidation")
	}
	if err.Field != "address" {
		t.Errorf("Field = %q, want %q", err.Field, "address")
	}
	if err.Error() != "address is not valid base58" {
		t.Errorf("Error() = %q, want the message verbatim", err.Error())
	}
}

func TestConflictMatchesSentinel(t *testing.T) {
	err := Conflict("account", "github:42")

	if !errors.Is(err, ErrConflict) {
		t.Error("Conflict() should match ErrConflict")
	}
}

func TestUnauthorizedMatchesSentinel(t *testing.T) {
	err := Unauthorized("not authenticated")

	if !errors.Is(err, ErrUnauthorized) {
		t.Error("Unauthorized() should match ErrUnauthorized")
	}
}

func TestMissingFieldIsUpstream(t *testing.T) {
	err := MissingField("discord", "externalId")

	if !errors.Is(err, ErrUpstream) {
		t.Error("MissingField() should match ErrUpstream")
	}
	if err.Field != "externalId" {
		t.Errorf("Field = %q, want %q", err.Field, "externalId")
	}
}

func TestSentinelSurvivesWrapping(t *testing.T) {
	// Services wrap AppErrors with fmt.Errorf("...: %w", err); errors.Is
	// must still find the sentinel through the whole chain.
	inner := MissingField("github", "username")
	wrapped := fmt.Errorf("handling callback: %w", inner)

	if !errors.Is(wrapped, ErrUpstream) {
		t.Error("wrapped error should still match ErrUpstream")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As should extract *AppError from the chain")
	}
	if appErr.Message != inner.Message {
		t.Errorf("extracted Message = %q, want %q", appErr.Message, inner.Message)
	}
}
