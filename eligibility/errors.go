/*
errors.go - Validation errors for the eligibility engine

PURPOSE:
  An evaluation either produces a complete Result or fails with one of the
  errors below. There is no partial result.

ERROR KINDS:
  1. InstallmentError - First installment <= 0. Fatal, single top-level message.
  2. ValidationError  - One or more renditions rejected. Carries every
                        per-entry failure and an annotated copy of the entries.
  3. PolicyError      - Engine misconfigured (threshold ratio out of range).

USAGE:
  result, err := engine.Evaluate(input)
  var verr *eligibility.ValidationError
  if errors.As(err, &verr) {
      for _, f := range verr.Failures { ... }
  }

SEE ALSO:
  - engine.go: Produces these errors
  - verification/form.go: Copies per-entry errors back onto the form
*/
package eligibility

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInstallment is returned when the first installment is not positive.
	ErrInvalidInstallment = errors.New("first installment must exceed zero")

	// ErrInvalidRenditionAmount is returned when at least one rendition is rejected.
	ErrInvalidRenditionAmount = errors.New("invalid rendition amount")

	// ErrInvalidPolicy is returned when the engine policy cannot be applied.
	ErrInvalidPolicy = errors.New("invalid eligibility policy")
)

// Messages shown next to the offending fields.
const (
	MessageInvalidInstallment     = "El monto de la 1ª cuota debe ser mayor a 0."
	MessageRenditionNegative      = "El monto rendido no puede ser negativo."
	MessageRenditionNotPositive   = "El monto rendido debe ser positivo."
	MessageCorrectRenditionErrors = "Por favor, corrija los errores marcados en rojo en las rendiciones."
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InstallmentError reports a first installment that is zero or negative.
type InstallmentError struct {
	FirstInstallment decimal.Decimal
}

func (e *InstallmentError) Error() string {
	return fmt.Sprintf("%s: got %s", ErrInvalidInstallment, e.FirstInstallment)
}

func (e *InstallmentError) Unwrap() error { return ErrInvalidInstallment }

// Message is the top-level text displayed to the user.
func (e *InstallmentError) Message() string { return MessageInvalidInstallment }

// RenditionFailure is the failure of a single entry.
type RenditionFailure struct {
	EntryID  string
	Position int // 1-based
	Amount   decimal.Decimal
	Message  string
}

// ValidationError reports every rejected rendition. Entries is a fresh copy
// of the input entries with ValidationError filled in for the rejected ones.
type ValidationError struct {
	Failures []RenditionFailure
	Entries  []RenditionEntry
}

func (e *ValidationError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = fmt.Sprintf("#%d(%s)", f.Position, f.Amount)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRenditionAmount, strings.Join(ids, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRenditionAmount }

// Message is the top-level text displayed to the user.
func (e *ValidationError) Message() string { return MessageCorrectRenditionErrors }

// FailureFor returns the failure recorded for an entry ID.
func (e *ValidationError) FailureFor(entryID string) (RenditionFailure, bool) {
	for _, f := range e.Failures {
		if f.EntryID == entryID {
			return f, true
		}
	}
	return RenditionFailure{}, false
}

// PolicyError reports an unusable Policy.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return fmt.Sprintf("%s: %s", ErrInvalidPolicy, e.Reason) }

func (e *PolicyError) Unwrap() error { return ErrInvalidPolicy }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid input that the
// user can correct.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInstallment) ||
		errors.Is(err, ErrInvalidRenditionAmount)
}

// UserMessage returns the top-level message for a client error, or "".
func UserMessage(err error) string {
	var m interface{ Message() string }
	if errors.As(err, &m) {
		return m.Message()
	}
	return ""
}
