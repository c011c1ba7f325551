package errors

import (
	"errors"
	"fmt"
	"testing"
)

// =============================================================================
// Test Error Types and Constructors
// =============================================================================

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *Error
		kind    Kind
		message string
	}{
		{"NotFound", NotFound("ticket not found"), ErrNotFound, "ticket not found"},
		{"NotFoundf", NotFoundf("ticket %s not found", "123"), ErrNotFound, "ticket 123 not found"},
		{"Validation", Validation("empty ticket"), ErrValidation, "empty ticket"},
		{"Validationf", Validationf("invalid animal %q", "41"), ErrValidation, `invalid animal "41"`},
		{"Conflict", Conflict("ticket already paid"), ErrConflict, "ticket already paid"},
		{"Conflictf", Conflictf("ticket %d is voided", 7), ErrConflict, "ticket 7 is voided"},
		{"Unauthorized", Unauthorized("not your ticket"), ErrUnauthorized, "not your ticket"},
		{"Unauthorizedf", Unauthorizedf("agency %d is disabled", 3), ErrUnauthorized, "agency 3 is disabled"},
		{"WindowClosed", WindowClosed("void window elapsed"), ErrWindowClosed, "void window elapsed"},
		{"WindowClosedf", WindowClosedf("slot %s is closed", "09:00 AM"), ErrWindowClosed, "slot 09:00 AM is closed"},
		{"Internalf", Internalf("total mismatch on ticket %d", 9), ErrInternal, "total mismatch on ticket 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("expected Kind %v, got %v", tt.kind, tt.err.Kind)
			}
			if tt.err.Message != tt.message {
				t.Errorf("expected Message '%s', got '%s'", tt.message, tt.err.Message)
			}
			if tt.err.Err != nil {
				t.Errorf("expected Err to be nil, got %v", tt.err.Err)
			}
		})
	}
}

func TestInternal(t *testing.T) {
	underlying := errors.New("database connection failed")
	err := Internal(underlying)

	if err.Kind != ErrInternal {
		t.Errorf("expected Kind to be ErrInternal, got %v", err.Kind)
	}
	if err.Message != "internal error" {
		t.Errorf("expected Message to be 'internal error', got '%s'", err.Message)
	}
	if err.Err != underlying {
		t.Errorf("expected Err to be the underlying error")
	}
	if err.Error() != "internal error: database connection failed" {
		t.Errorf("unexpected Error() output: %s", err.Error())
	}
}

func TestWrap(t *testing.T) {
	underlying := errors.New("UNIQUE constraint failed: agencies.username")
	err := Wrap(underlying, ErrConflict, "username already taken")

	if err.Kind != ErrConflict {
		t.Errorf("expected Kind to be ErrConflict, got %v", err.Kind)
	}
	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to find the wrapped error")
	}
	if err.Unwrap() != underlying {
		t.Error("expected Unwrap to return the underlying error")
	}
}

func TestErrorMethod_WithoutWrappedError(t *testing.T) {
	err := Validation("amount must be positive")
	if err.Error() != "amount must be positive" {
		t.Errorf("expected 'amount must be positive', got '%s'", err.Error())
	}
}

// =============================================================================
// Test Kind helpers
// =============================================================================

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", NotFound("x"), ErrNotFound},
		{"wrapped by fmt", fmt.Errorf("selling: %w", WindowClosed("slot closed")), ErrWindowClosed},
		{"plain error", errors.New("boom"), ErrInternal},
		{"nil", nil, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("paying: %w", Conflict("ticket already paid"))

	if !IsKind(err, ErrConflict) {
		t.Error("expected IsKind to match ErrConflict")
	}
	if IsKind(err, ErrNotFound) {
		t.Error("expected IsKind not to match ErrNotFound")
	}
	if IsKind(nil, ErrInternal) {
		t.Error("expected IsKind(nil) to be false")
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		ErrInternal:     "internal",
		ErrNotFound:     "not_found",
		ErrValidation:   "validation",
		ErrConflict:     "state_conflict",
		ErrUnauthorized: "unauthorized",
		ErrWindowClosed: "window_closed",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestErrorsAs_WrappedError(t *testing.T) {
	appErr := Unauthorized("administrators cannot sell")
	wrapped := fmt.Errorf("context: %w", appErr)

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("expected errors.As to find *Error in chain")
	}
	if target.Kind != ErrUnauthorized {
		t.Errorf("expected Kind ErrUnauthorized, got %v", target.Kind)
	}
}
