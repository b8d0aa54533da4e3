/*
Package verification is the caller side of the eligibility engine.

PURPOSE:
  Holds the editable verification form (raw text exactly as typed), turns it
  into an eligibility.Input through the money normalizer, runs the engine and
  keeps saved verifications so they can be reopened or shared.

KEY CONCEPTS:
  Form:        Project data and renditions as raw text
  Outcome:     Annotated form + Result, or annotated form + message
  Record:      A saved form with its share token and last summary
  Share token: URL-safe base64 of the form JSON, the "save progress" link

VALUE SEMANTICS:
  Form methods never modify the receiver. Edits return a new Form, and the
  engine's per-entry errors are copied onto a new Form by position. Nothing
  here aliases the caller's slices.

SEE ALSO:
  - service.go: Calculate / Save / Get / List
  - share.go: Share token encoding
  - store/memory.go, store/sqlite: Store implementations
*/
package verification

import (
	"github.com/google/uuid"

	"github.com/warp/disbursement-engine/eligibility"
	"github.com/warp/disbursement-engine/money"
)

// =============================================================================
// FORM
// =============================================================================

// Form is the verification form. JSON names follow the share-link payload.
type Form struct {
	ProjectCode        string          `json:"codigoProyecto"`
	ManagerName        string          `json:"nombreEncargado"`
	ProjectTotal       string          `json:"montoTotalProyecto"`
	InstallmentCount   string          `json:"cantidadCuotas"`
	FirstInstallment   string          `json:"primeraCuota"`
	GuaranteeUnits     string          `json:"unidadesGarantia,omitempty"`
	GuaranteeUnitValue string          `json:"valorUnidadGarantia,omitempty"`
	Renditions         []FormRendition `json:"rendiciones"`
}

// FormRendition is one rendition row. Error is display state only.
type FormRendition struct {
	ID             string `json:"id"`
	DeclaredAmount string `json:"montoRendido"`
	Error          string `json:"error,omitempty"`
}

// NewRendition returns an empty row with a fresh identifier and amount 0.
func NewRendition() FormRendition {
	return FormRendition{ID: uuid.NewString(), DeclaredAmount: "0"}
}

// DemoForm is the seeded form shown on first load.
func DemoForm() Form {
	return Form{
		ProjectCode:        "AB-123456-78901-CD",
		ManagerName:        "Juan Pérez González",
		ProjectTotal:       "20.000.000",
		InstallmentCount:   "2",
		FirstInstallment:   "10.000.000",
		GuaranteeUnits:     "1.500,00",
		GuaranteeUnitValue: "37.511,83",
		Renditions: []FormRendition{
			{ID: uuid.NewString(), DeclaredAmount: "3.000.000"},
			{ID: uuid.NewString(), DeclaredAmount: "2.200.000"},
			{ID: uuid.NewString(), DeclaredAmount: "800.000"},
		},
	}
}

// Clone returns a deep copy.
func (f Form) Clone() Form {
	out := f
	out.Renditions = make([]FormRendition, len(f.Renditions))
	copy(out.Renditions, f.Renditions)
	return out
}

// Input parses the form into an engine snapshot. Unparseable decimals become 0.
func (f Form) Input(n money.Normalizer) eligibility.Input {
	entries := make([]eligibility.RenditionEntry, len(f.Renditions))
	for i, r := range f.Renditions {
		entries[i] = eligibility.RenditionEntry{
			ID:     r.ID,
			Amount: n.ParseGroupedInteger(r.DeclaredAmount),
		}
	}
	return eligibility.Input{
		ProjectTotal:       n.ParseGroupedInteger(f.ProjectTotal),
		FirstInstallment:   n.ParseGroupedInteger(f.FirstInstallment),
		GuaranteeUnits:     n.DecimalOrZero(f.GuaranteeUnits),
		GuaranteeUnitValue: n.DecimalOrZero(f.GuaranteeUnitValue),
		Renditions:         entries,
	}
}

// Commit re-formats every numeric field the way a field is re-rendered on blur.
func (f Form) Commit(n money.Normalizer) Form {
	out := f.Clone()
	out.ProjectTotal = n.FormatGroupedInteger(n.ParseGroupedInteger(f.ProjectTotal))
	out.FirstInstallment = n.FormatGroupedInteger(n.ParseGroupedInteger(f.FirstInstallment))
	out.InstallmentCount = n.ParseGroupedInteger(f.InstallmentCount).String()
	if f.GuaranteeUnits != "" {
		out.GuaranteeUnits = n.FormatDecimal(n.DecimalOrZero(f.GuaranteeUnits), money.TwoDecimals)
	}
	if f.GuaranteeUnitValue != "" {
		out.GuaranteeUnitValue = n.FormatDecimal(n.DecimalOrZero(f.GuaranteeUnitValue), money.TwoDecimals)
	}
	for i, r := range out.Renditions {
		out.Renditions[i].DeclaredAmount = n.FormatGroupedInteger(n.ParseGroupedInteger(r.DeclaredAmount))
	}
	return out
}

// =============================================================================
// RENDITION EDITS
// =============================================================================

// AddRendition appends a new zero row.
func (f Form) AddRendition() Form {
	out := f.Clone()
	out.Renditions = append(out.Renditions, NewRendition())
	return out
}

// EditRendition sets a row's amount text and clears its error.
func (f Form) EditRendition(id, text string) Form {
	out := f.Clone()
	for i := range out.Renditions {
		if out.Renditions[i].ID == id {
			out.Renditions[i].DeclaredAmount = text
			out.Renditions[i].Error = ""
		}
	}
	return out
}

// RemoveRendition drops a row.
func (f Form) RemoveRendition(id string) Form {
	out := f.Clone()
	kept := out.Renditions[:0]
	for _, r := range out.Renditions {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	out.Renditions = kept
	return out
}

// Annotate copies per-entry messages from a validation failure onto a new
// form, matching entries by position. A nil error clears every message.
func (f Form) Annotate(verr *eligibility.ValidationError) Form {
	out := f.Clone()
	for i := range out.Renditions {
		out.Renditions[i].Error = ""
		if verr != nil && i < len(verr.Entries) {
			out.Renditions[i].Error = verr.Entries[i].ValidationError
		}
	}
	return out
}

// HasErrors reports whether any row carries an error.
func (f Form) HasErrors() bool {
	for _, r := range f.Renditions {
		if r.Error != "" {
			return true
		}
	}
	return false
}
