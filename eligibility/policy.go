package eligibility

import (
	"github.com/shopspring/decimal"
)

// RenditionRule decides which declared amounts are acceptable.
type RenditionRule string

const (
	// RuleNonNegative accepts zero. This is the default: a freshly added entry
	// starts at 0 and must not block the calculation.
	RuleNonNegative RenditionRule = "non_negative"
	// RuleStrictlyPositive rejects zero as well.
	RuleStrictlyPositive RenditionRule = "strictly_positive"
)

// DefaultThresholdRatio is the share of the first installment that must be
// justified before the second one is released.
var DefaultThresholdRatio = decimal.RequireFromString("0.6")

// Policy parameterizes the engine.
type Policy struct {
	ThresholdRatio decimal.Decimal
	RenditionRule  RenditionRule
}

func DefaultPolicy() Policy {
	return Policy{
		ThresholdRatio: DefaultThresholdRatio,
		RenditionRule:  RuleNonNegative,
	}
}

// Validate checks that the ratio lies in (0, 1] and the rule is known.
func (p Policy) Validate() error {
	if !p.ThresholdRatio.IsPositive() || p.ThresholdRatio.GreaterThan(decimal.NewFromInt(1)) {
		return &PolicyError{Reason: "threshold ratio must be in (0, 1], got " + p.ThresholdRatio.String()}
	}
	switch p.RenditionRule {
	case RuleNonNegative, RuleStrictlyPositive:
		return nil
	default:
		return &PolicyError{Reason: "unknown rendition rule " + string(p.RenditionRule)}
	}
}

// check returns the failure message for amount, or "" when it is accepted.
func (r RenditionRule) check(amount decimal.Decimal) string {
	switch r {
	case RuleStrictlyPositive:
		if !amount.IsPositive() {
			return MessageRenditionNotPositive
		}
	default:
		if amount.IsNegative() {
			return MessageRenditionNegative
		}
	}
	return ""
}
