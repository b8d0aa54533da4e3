/*
scenarios.go - Reference scenarios evaluated live

PURPOSE:
  Provides the reference verification forms used in demos and acceptance
  checks. Each scenario is plain form text; it goes through the same
  normalizer and engine as user input, so the numbers shown are always
  the engine's current answer.

AVAILABLE SCENARIOS:

	threshold-met:       Renditions exactly at 60% of the first installment
	below-threshold:     Renditions short of the threshold, not eligible
	guarantee-covers:    Guarantee covers the total, eligible with remainder
	zero-installment:    First installment 0, rejected before any totals
	no-project-total:    No total, suggestion repeats the first installment

USAGE VIA API:

	GET /api/scenarios
	GET /api/scenarios/guarantee-covers

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and form

SEE ALSO:
  - handlers.go: ListScenarios, GetScenario handlers
  - eligibility/engine_test.go: Same scenarios as unit tests
*/
package api

import (
	"github.com/warp/disbursement-engine/verification"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

func scenarioRenditions(amounts ...string) []verification.FormRendition {
	out := make([]verification.FormRendition, len(amounts))
	for i, a := range amounts {
		out[i] = verification.FormRendition{ID: string(rune('a'+i)) + "1", DeclaredAmount: a}
	}
	return out
}

type scenario struct {
	ID          string
	Name        string
	Description string
	Category    string
	Form        verification.Form
}

var scenarios = []scenario{
	{
		ID:          "threshold-met",
		Name:        "Threshold Met",
		Description: "Renditions add up to exactly 60% of the first installment; equality counts as met",
		Category:    "rendition",
		Form: verification.Form{
			ProjectTotal:     "0",
			InstallmentCount: "2",
			FirstInstallment: "10.000.000",
			Renditions:       scenarioRenditions("3.000.000", "2.200.000", "800.000"),
		},
	},
	{
		ID:          "below-threshold",
		Name:        "Below Threshold",
		Description: "A single 1.000.000 rendition leaves 5.000.000 to justify; not eligible whatever the guarantee",
		Category:    "rendition",
		Form: verification.Form{
			ProjectTotal:     "0",
			InstallmentCount: "2",
			FirstInstallment: "10.000.000",
			Renditions:       scenarioRenditions("1.000.000"),
		},
	},
	{
		ID:          "guarantee-covers",
		Name:        "Guarantee Covers Total",
		Description: "1.500 units at 37.511,83 cover the 20.000.000 total; suggested second installment is the remainder",
		Category:    "guarantee",
		Form: verification.Form{
			ProjectCode:        "AB-123456-78901-CD",
			ProjectTotal:       "20.000.000",
			InstallmentCount:   "2",
			FirstInstallment:   "10.000.000",
			GuaranteeUnits:     "1.500,00",
			GuaranteeUnitValue: "37.511,83",
			Renditions:         scenarioRenditions("3.000.000", "2.200.000", "800.000"),
		},
	},
	{
		ID:          "zero-installment",
		Name:        "Zero First Installment",
		Description: "A first installment of 0 is rejected before anything else is computed",
		Category:    "validation",
		Form: verification.Form{
			ProjectTotal:     "20.000.000",
			InstallmentCount: "2",
			FirstInstallment: "0",
			Renditions:       scenarioRenditions("3.000.000"),
		},
	},
	{
		ID:          "no-project-total",
		Name:        "No Project Total",
		Description: "Without a project total the suggestion repeats the 5.000.000 first installment",
		Category:    "suggestion",
		Form: verification.Form{
			ProjectTotal:     "0",
			InstallmentCount: "2",
			FirstInstallment: "5.000.000",
			Renditions:       scenarioRenditions("3.000.000"),
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

func (s scenario) dto() ScenarioDTO {
	return ScenarioDTO{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Category:    s.Category,
		Form:        toFormDTO(s.Form),
	}
}
