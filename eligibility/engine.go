/*
engine.go - The eligibility calculation

ALGORITHM (in order):
  1. Guard:      FirstInstallment <= 0 fails with InstallmentError
  2. Entries:    every rendition is checked against the policy rule;
                 any failure fails the whole call (all-or-nothing)
  3. Guarantee:  value = units x unit value
                 sufficient = ProjectTotal <= 0 || value >= ProjectTotal
                 gap = ProjectTotal > 0 ? max(0, ProjectTotal - value) : 0
  4. Totals:     total = sum(renditions)
                 threshold = FirstInstallment x ratio
                 percentage = total / FirstInstallment x 100
                 gap = max(0, threshold - total)
  5. Decision:   eligible = total >= threshold && sufficient
  6. Suggestion: ProjectTotal > 0 ? max(0, ProjectTotal - FirstInstallment)
                                  : FirstInstallment

EXAMPLE:
  First installment 10.000.000, renditions 3.000.000 + 2.200.000 + 800.000:
    total 6.000.000, threshold 6.000.000, gap 0 -> rendition condition met

CONCURRENCY:
  Engine has no mutable state. Evaluate may be called from any goroutine.
*/
package eligibility

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/disbursement-engine/money"
)

// RationaleWithoutTotal explains a suggestion made without a project total.
const RationaleWithoutTotal = "El monto de la 2ª cuota se asume igual al de la 1ª cuota, ya que no se ingresó un Monto Total de Proyecto válido."

var hundred = decimal.NewFromInt(100)

// Engine evaluates inputs under a fixed Policy.
type Engine struct {
	Policy     Policy
	Normalizer money.Normalizer // formats the rationale operands
}

// NewEngine returns an engine for policy, or an error if the policy is unusable.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{Policy: policy, Normalizer: money.Default}, nil
}

var defaultEngine = &Engine{Policy: DefaultPolicy(), Normalizer: money.Default}

// Evaluate runs the default engine.
func Evaluate(in Input) (Result, error) {
	return defaultEngine.Evaluate(in)
}

// Evaluate computes the Result for in. It fails with *InstallmentError or
// *ValidationError; on failure no Result is produced.
func (e *Engine) Evaluate(in Input) (Result, error) {
	// 1. Guard
	if !in.FirstInstallment.IsPositive() {
		return Result{}, &InstallmentError{FirstInstallment: in.FirstInstallment}
	}

	// 2. Per-entry validation
	if err := e.ValidateEntries(in.Renditions); err != nil {
		return Result{}, err
	}

	ratio := e.Policy.ThresholdRatio
	if ratio.IsZero() {
		ratio = DefaultThresholdRatio
	}

	// 3. Guarantee
	guaranteeValue := in.GuaranteeUnits.Mul(in.GuaranteeUnitValue)
	guaranteeSufficient := true
	guaranteeGap := decimal.Zero
	if in.ProjectTotal.IsPositive() {
		guaranteeSufficient = guaranteeValue.GreaterThanOrEqual(in.ProjectTotal)
		guaranteeGap = decimal.Max(decimal.Zero, in.ProjectTotal.Sub(guaranteeValue))
	}

	// 4. Rendition totals
	considered := make([]ConsideredRendition, len(in.Renditions))
	total := decimal.Zero
	for i, r := range in.Renditions {
		considered[i] = ConsideredRendition{
			ID:     r.ID,
			Label:  fmt.Sprintf("Rendición %d", i+1),
			Amount: r.Amount,
		}
		total = total.Add(r.Amount)
	}
	threshold := in.FirstInstallment.Mul(ratio)
	percentage := total.Div(in.FirstInstallment).Mul(hundred)
	thresholdGap := decimal.Max(decimal.Zero, threshold.Sub(total))

	// 5. Decision
	renditionMet := total.GreaterThanOrEqual(threshold)

	return Result{
		Eligible:              renditionMet && guaranteeSufficient,
		RenditionTotal:        total,
		ExecutionThreshold:    threshold,
		ExecutionPercentage:   percentage,
		ThresholdGap:          thresholdGap,
		RenditionConditionMet: renditionMet,
		GuaranteeValue:        guaranteeValue,
		GuaranteeSufficient:   guaranteeSufficient,
		GuaranteeGap:          guaranteeGap,
		SecondInstallment:     e.suggest(in.ProjectTotal, in.FirstInstallment),
		ConsideredRenditions:  considered,
	}, nil
}

// ValidateEntries checks every entry against the policy rule and returns a
// *ValidationError listing all failures, or nil.
func (e *Engine) ValidateEntries(entries []RenditionEntry) error {
	var failures []RenditionFailure
	annotated := make([]RenditionEntry, len(entries))
	for i, r := range entries {
		r.ValidationError = e.Policy.RenditionRule.check(r.Amount)
		if r.ValidationError != "" {
			failures = append(failures, RenditionFailure{
				EntryID:  r.ID,
				Position: i + 1,
				Amount:   r.Amount,
				Message:  r.ValidationError,
			})
		}
		annotated[i] = r
	}
	if len(failures) == 0 {
		return nil
	}
	return &ValidationError{Failures: failures, Entries: annotated}
}

// 6. Suggested second installment
func (e *Engine) suggest(projectTotal, first decimal.Decimal) SecondInstallment {
	if projectTotal.IsPositive() {
		return SecondInstallment{
			Amount:           decimal.Max(decimal.Zero, projectTotal.Sub(first)),
			Basis:            BasisRemainder,
			ProjectTotal:     projectTotal,
			FirstInstallment: first,
			Rationale: fmt.Sprintf("%s - %s",
				e.normalizer().FormatGroupedInteger(projectTotal),
				e.normalizer().FormatGroupedInteger(first)),
		}
	}
	return SecondInstallment{
		Amount:           first,
		Basis:            BasisFirstInstallment,
		ProjectTotal:     decimal.Zero,
		FirstInstallment: first,
		Rationale:        RationaleWithoutTotal,
	}
}

func (e *Engine) normalizer() money.Normalizer {
	if e.Normalizer.Locale.Group == "" && e.Normalizer.Locale.Decimal == "" {
		return money.Default
	}
	return e.Normalizer
}
