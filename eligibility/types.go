/*
Package eligibility decides whether the second installment of a subsidized
project may be disbursed.

PURPOSE:
  Given how much of the first installment has been justified by renditions
  (expense submissions) and whether the posted guarantee still covers the
  project's total, compute the execution metrics, the guarantee metrics, the
  combined decision and the suggested second-installment amount.

KEY CONCEPTS IN THIS FILE (types.go):
  - RenditionEntry: One declared expense line
  - Input: Immutable snapshot handed to the engine per evaluation
  - Result: Everything the report and the UI display
  - SecondInstallment: Suggested amount plus how it was derived

TWO CONDITIONS:
  Rendition condition:  RenditionTotal >= FirstInstallment x 60%
  Guarantee condition:  GuaranteeUnits x GuaranteeUnitValue >= ProjectTotal
                        (vacuously true when ProjectTotal is unknown)
  Eligible = both.

PRECISION:
  Every amount is a decimal.Decimal. Currency amounts are whole units at the
  boundary, but thresholds and guarantee values stay exact until formatting.

SEE ALSO:
  - engine.go: Evaluate
  - errors.go: Validation failures
  - money/normalize.go: Text to decimal conversion
*/
package eligibility

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT
// =============================================================================

// RenditionEntry is one declared expense-justification line.
// ID is opaque and unique within an Input. ValidationError is set only on the
// annotated copies returned inside a ValidationError; the engine never writes
// to the caller's entries.
type RenditionEntry struct {
	ID              string
	Amount          decimal.Decimal
	ValidationError string
}

// Input is the snapshot evaluated by the engine. A ProjectTotal of zero means
// the total was not provided.
type Input struct {
	ProjectTotal       decimal.Decimal
	FirstInstallment   decimal.Decimal
	GuaranteeUnits     decimal.Decimal
	GuaranteeUnitValue decimal.Decimal
	Renditions         []RenditionEntry
}

// =============================================================================
// RESULT
// =============================================================================

// Basis tells how the suggested second installment was derived.
type Basis string

const (
	// BasisRemainder: ProjectTotal - FirstInstallment, floored at zero.
	BasisRemainder Basis = "remainder"
	// BasisFirstInstallment: no project total, repeat the first installment.
	BasisFirstInstallment Basis = "first_installment"
)

// SecondInstallment is the suggested next disbursement. Rationale carries the
// exact wording shared by the report and the UI; renderers switch on Basis.
type SecondInstallment struct {
	Amount           decimal.Decimal
	Basis            Basis
	ProjectTotal     decimal.Decimal
	FirstInstallment decimal.Decimal
	Rationale        string
}

// ConsideredRendition is an entry that entered the totals. Label is the
// 1-based display position ("Rendición 2"), unrelated to ID.
type ConsideredRendition struct {
	ID     string
	Label  string
	Amount decimal.Decimal
}

// Result is the outcome of a successful evaluation. It shares no memory with
// the Input it was computed from.
type Result struct {
	Eligible bool

	// Rendition condition
	RenditionTotal        decimal.Decimal
	ExecutionThreshold    decimal.Decimal
	ExecutionPercentage   decimal.Decimal
	ThresholdGap          decimal.Decimal
	RenditionConditionMet bool

	// Guarantee condition
	GuaranteeValue      decimal.Decimal
	GuaranteeSufficient bool
	GuaranteeGap        decimal.Decimal

	SecondInstallment    SecondInstallment
	ConsideredRenditions []ConsideredRendition
}
