/*
errors.go - Centralized error types for the tax computation engine

PURPOSE:
  All error types of the computation core in one place. Callers match with
  errors.Is/errors.As; outer layers (api) map them to HTTP statuses.

ERROR CATEGORIES:
  1. Input errors   - Malformed tax year, invalid mortgage terms, unknown form
  2. Scope errors   - Property scope resolves to nothing
  3. Merge warnings - Non-fatal conditions surfaced via a warnings channel,
                      never as errors (see forms.Reconcile)

USAGE:
  if errors.Is(err, engine.ErrNotFound) {
      w.WriteHeader(http.StatusNotFound)
  }

SEE ALSO:
  - aggregate.go: Returns ErrNotFound for empty scopes
  - forms/reconcile.go: Produces warnings, not errors, for clamped or
    orphaned values
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed inputs: a non-positive tax
	// year, a mortgage with non-positive principal or amortization, or a
	// form-type lookup with no configuration. The engine fails fast and never
	// partially computes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when the requested property scope does not
	// exist or does not belong to the requesting owner.
	ErrNotFound = errors.New("not found")

	// ErrInconsistentPrevious marks a previous payload referencing a bucket
	// that no longer exists in the current form definition. It is tolerated:
	// the orphaned value is dropped and the condition is reported as a
	// warning, never as a failure.
	ErrInconsistentPrevious = errors.New("previous payload references unknown bucket")

	// ErrDuplicateStatement is returned when a statement already exists for
	// the same (user, form type, property, tax year) key.
	ErrDuplicateStatement = errors.New("statement already exists for this scope")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InputError wraps ErrInvalidInput with the offending field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// ScopeError wraps ErrNotFound with the requested scope.
type ScopeError struct {
	OwnerID    UserID
	PropertyID PropertyID // empty means "all properties for owner"
}

func (e *ScopeError) Error() string {
	if e.PropertyID == "" {
		return fmt.Sprintf("no properties found for owner %s", e.OwnerID)
	}
	return fmt.Sprintf("property %s not found for owner %s", e.PropertyID, e.OwnerID)
}

func (e *ScopeError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateStatement)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
