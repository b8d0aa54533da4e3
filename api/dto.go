/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the verification form and the engine's Result from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Form fields stay raw text, exactly as typed ("20.000.000"). Result amounts
  are decimal strings ("6000000", "4.2") so no precision is lost in JSON;
  the "display" block carries the same numbers formatted for the locale.

SEE ALSO:
  - handlers.go: Uses these types
  - verification/form.go: Form type
*/
package api

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/disbursement-engine/eligibility"
	"github.com/warp/disbursement-engine/money"
	"github.com/warp/disbursement-engine/narrative"
	"github.com/warp/disbursement-engine/verification"
)

// =============================================================================
// FORM
// =============================================================================

// FormDTO is the verification form as typed by the user.
type FormDTO struct {
	ProjectCode        string         `json:"project_code"`
	ManagerName        string         `json:"manager_name"`
	ProjectTotal       string         `json:"project_total"`
	InstallmentCount   string         `json:"installment_count"`
	FirstInstallment   string         `json:"first_installment"`
	GuaranteeUnits     string         `json:"guarantee_units"`
	GuaranteeUnitValue string         `json:"guarantee_unit_value"`
	Renditions         []RenditionDTO `json:"renditions"`
}

// RenditionDTO is one rendition row. Error is only set in responses.
type RenditionDTO struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Error  string `json:"error,omitempty"`
}

// EvaluateRequest is the body of POST /api/evaluate and POST /api/narrative.
type EvaluateRequest struct {
	Form FormDTO `json:"form"`
	// Commit re-formats the numeric fields before evaluating.
	Commit bool `json:"commit,omitempty"`
}

// SaveVerificationRequest is the body of POST /api/verifications.
// An empty ID creates a new verification.
type SaveVerificationRequest struct {
	ID   string  `json:"id,omitempty"`
	Form FormDTO `json:"form"`
}

// =============================================================================
// RESULT
// =============================================================================

// ResultDTO mirrors eligibility.Result.
type ResultDTO struct {
	Eligible              bool                     `json:"eligible"`
	RenditionTotal        decimal.Decimal          `json:"rendition_total"`
	ExecutionThreshold    decimal.Decimal          `json:"execution_threshold"`
	ExecutionPercentage   decimal.Decimal          `json:"execution_percentage"`
	ThresholdGap          decimal.Decimal          `json:"threshold_gap"`
	RenditionConditionMet bool                     `json:"rendition_condition_met"`
	GuaranteeValue        decimal.Decimal          `json:"guarantee_value"`
	GuaranteeSufficient   bool                     `json:"guarantee_sufficient"`
	GuaranteeGap          decimal.Decimal          `json:"guarantee_gap"`
	SecondInstallment     SecondInstallmentDTO     `json:"second_installment"`
	ConsideredRenditions  []ConsideredRenditionDTO `json:"considered_renditions"`
	Display               narrative.Facts          `json:"display"`
}

// SecondInstallmentDTO is the suggested second installment.
type SecondInstallmentDTO struct {
	Amount           decimal.Decimal   `json:"amount"`
	Basis            eligibility.Basis `json:"basis"`
	ProjectTotal     decimal.Decimal   `json:"project_total"`
	FirstInstallment decimal.Decimal   `json:"first_installment"`
	Rationale        string            `json:"rationale"`
}

// ConsideredRenditionDTO is a rendition that entered the totals.
type ConsideredRenditionDTO struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// FailureDTO describes one rejected rendition.
type FailureDTO struct {
	ID       string          `json:"id"`
	Position int             `json:"position"`
	Amount   decimal.Decimal `json:"amount"`
	Message  string          `json:"message"`
}

// EvaluateResponse is returned by POST /api/evaluate. Exactly one of Result
// and Message is set.
type EvaluateResponse struct {
	Form     FormDTO      `json:"form"`
	Result   *ResultDTO   `json:"result,omitempty"`
	Message  string       `json:"message,omitempty"`
	Failures []FailureDTO `json:"failures,omitempty"`
}

// NarrativeDTO is the best-effort commentary attached to a result.
type NarrativeDTO struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Error  string `json:"error,omitempty"`
}

// NarrativeResponse is returned by POST /api/narrative.
type NarrativeResponse struct {
	EvaluateResponse
	Narrative NarrativeDTO `json:"narrative"`
}

// =============================================================================
// VERIFICATIONS
// =============================================================================

// VerificationDTO is a saved verification.
type VerificationDTO struct {
	ID         string      `json:"id"`
	Form       FormDTO     `json:"form"`
	ShareToken string      `json:"share_token"`
	SharePath  string      `json:"share_path"`
	Summary    *SummaryDTO `json:"summary,omitempty"`
	CreatedAt  string      `json:"created_at"`
	UpdatedAt  string      `json:"updated_at"`
}

// SummaryDTO is the headline of the last successful evaluation.
type SummaryDTO struct {
	Eligible            bool   `json:"eligible"`
	RenditionTotal      string `json:"rendition_total"`
	ExecutionPercentage string `json:"execution_percentage"`
	SuggestedAmount     string `json:"suggested_amount"`
	EvaluatedAt         string `json:"evaluated_at"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a reference scenario.
type ScenarioDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Form        FormDTO `json:"form"`
}

// ScenarioResponse is a scenario together with its live evaluation.
type ScenarioResponse struct {
	Scenario   ScenarioDTO      `json:"scenario"`
	Evaluation EvaluateResponse `json:"evaluation"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (d FormDTO) toForm() verification.Form {
	f := verification.Form{
		ProjectCode:        d.ProjectCode,
		ManagerName:        d.ManagerName,
		ProjectTotal:       d.ProjectTotal,
		InstallmentCount:   d.InstallmentCount,
		FirstInstallment:   d.FirstInstallment,
		GuaranteeUnits:     d.GuaranteeUnits,
		GuaranteeUnitValue: d.GuaranteeUnitValue,
		Renditions:         make([]verification.FormRendition, len(d.Renditions)),
	}
	for i, r := range d.Renditions {
		id := r.ID
		if id == "" {
			id = verification.NewRendition().ID
		}
		// client-sent errors are display state and never trusted
		f.Renditions[i] = verification.FormRendition{ID: id, DeclaredAmount: r.Amount}
	}
	return f
}

func toFormDTO(f verification.Form) FormDTO {
	d := FormDTO{
		ProjectCode:        f.ProjectCode,
		ManagerName:        f.ManagerName,
		ProjectTotal:       f.ProjectTotal,
		InstallmentCount:   f.InstallmentCount,
		FirstInstallment:   f.FirstInstallment,
		GuaranteeUnits:     f.GuaranteeUnits,
		GuaranteeUnitValue: f.GuaranteeUnitValue,
		Renditions:         make([]RenditionDTO, len(f.Renditions)),
	}
	for i, r := range f.Renditions {
		d.Renditions[i] = RenditionDTO{ID: r.ID, Amount: r.DeclaredAmount, Error: r.Error}
	}
	return d
}

func toResultDTO(r eligibility.Result, n money.Normalizer) *ResultDTO {
	considered := make([]ConsideredRenditionDTO, len(r.ConsideredRenditions))
	for i, c := range r.ConsideredRenditions {
		considered[i] = ConsideredRenditionDTO{ID: c.ID, Label: c.Label, Amount: c.Amount}
	}
	return &ResultDTO{
		Eligible:              r.Eligible,
		RenditionTotal:        r.RenditionTotal,
		ExecutionThreshold:    r.ExecutionThreshold,
		ExecutionPercentage:   r.ExecutionPercentage,
		ThresholdGap:          r.ThresholdGap,
		RenditionConditionMet: r.RenditionConditionMet,
		GuaranteeValue:        r.GuaranteeValue,
		GuaranteeSufficient:   r.GuaranteeSufficient,
		GuaranteeGap:          r.GuaranteeGap,
		SecondInstallment: SecondInstallmentDTO{
			Amount:           r.SecondInstallment.Amount,
			Basis:            r.SecondInstallment.Basis,
			ProjectTotal:     r.SecondInstallment.ProjectTotal,
			FirstInstallment: r.SecondInstallment.FirstInstallment,
			Rationale:        r.SecondInstallment.Rationale,
		},
		ConsideredRenditions: considered,
		Display:              narrative.FactsFrom(r, n),
	}
}

func toEvaluateResponse(out verification.Outcome, n money.Normalizer) EvaluateResponse {
	resp := EvaluateResponse{Form: toFormDTO(out.Form), Message: out.Message}
	if out.Result != nil {
		resp.Result = toResultDTO(*out.Result, n)
	}
	for _, f := range out.Failures {
		resp.Failures = append(resp.Failures, FailureDTO{
			ID:       f.EntryID,
			Position: f.Position,
			Amount:   f.Amount,
			Message:  f.Message,
		})
	}
	return resp
}

func toVerificationDTO(r verification.Record) VerificationDTO {
	d := VerificationDTO{
		ID:         r.ID,
		Form:       toFormDTO(r.Form),
		ShareToken: r.ShareToken,
		SharePath:  "/api/share?data=" + url.QueryEscape(r.ShareToken),
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
	}
	if s := r.Summary; s != nil {
		d.Summary = &SummaryDTO{
			Eligible:            s.Eligible,
			RenditionTotal:      s.RenditionTotal,
			ExecutionPercentage: s.ExecutionPercentage,
			SuggestedAmount:     s.SuggestedAmount,
			EvaluatedAt:         s.EvaluatedAt.Format(time.RFC3339),
		}
	}
	return d
}

func toNarrativeDTO(n narrative.Narrative) NarrativeDTO {
	d := NarrativeDTO{Text: n.Text, Source: string(n.Source)}
	if n.Err != nil {
		d.Error = n.Err.Error()
	}
	return d
}
