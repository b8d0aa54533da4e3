/*
Package narrative produces human-readable commentary for an eligibility result.

PURPOSE:
  The report carries a short paragraph explaining the decision. It can come
  from an LLM (Gemini via google.golang.org/genai) or from a fixed template.
  Either way it is enrichment: it reads a copy of the computed figures and has
  no way to change the decision.

FLOW:
  1. Facts are copied out of eligibility.Result as formatted strings
  2. Enricher looks the facts up in the cache
  3. Primary generator runs under a timeout
  4. On any failure the TemplateGenerator answers instead

SEE ALSO:
  - enricher.go: Timeout, cache and fallback
  - generator.go: TemplateGenerator and GenAIGenerator
*/
package narrative

import (
	"github.com/warp/disbursement-engine/eligibility"
	"github.com/warp/disbursement-engine/money"
)

var percentDigits = money.FractionDigits{Min: 1, Max: 1}

// Facts is the formatted, read-only view of a Result given to generators.
type Facts struct {
	Eligible              bool   `json:"eligible"`
	RenditionConditionMet bool   `json:"rendition_condition_met"`
	GuaranteeSufficient   bool   `json:"guarantee_sufficient"`
	ProjectTotalKnown     bool   `json:"project_total_known"`
	RenditionTotal        string `json:"rendition_total"`
	ExecutionThreshold    string `json:"execution_threshold"`
	ExecutionPercentage   string `json:"execution_percentage"`
	ThresholdGap          string `json:"threshold_gap"`
	GuaranteeValue        string `json:"guarantee_value"`
	GuaranteeGap          string `json:"guarantee_gap"`
	SuggestedAmount       string `json:"suggested_amount"`
	SuggestedRationale    string `json:"suggested_rationale"`
	RenditionCount        int    `json:"rendition_count"`
}

// FactsFrom formats r with n.
func FactsFrom(r eligibility.Result, n money.Normalizer) Facts {
	return Facts{
		Eligible:              r.Eligible,
		RenditionConditionMet: r.RenditionConditionMet,
		GuaranteeSufficient:   r.GuaranteeSufficient,
		ProjectTotalKnown:     r.SecondInstallment.Basis == eligibility.BasisRemainder,
		RenditionTotal:        n.FormatGroupedInteger(r.RenditionTotal),
		ExecutionThreshold:    n.FormatGroupedInteger(r.ExecutionThreshold),
		ExecutionPercentage:   n.FormatDecimal(r.ExecutionPercentage, percentDigits),
		ThresholdGap:          n.FormatGroupedInteger(r.ThresholdGap),
		GuaranteeValue:        n.FormatGroupedInteger(r.GuaranteeValue),
		GuaranteeGap:          n.FormatGroupedInteger(r.GuaranteeGap),
		SuggestedAmount:       n.FormatGroupedInteger(r.SecondInstallment.Amount),
		SuggestedRationale:    r.SecondInstallment.Rationale,
		RenditionCount:        len(r.ConsideredRenditions),
	}
}
