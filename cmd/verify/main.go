/*
main.go - Command-line second-installment verification

PURPOSE:
  Evaluates one verification from flags and prints the result as JSON or
  YAML. Useful for scripting and for checking a case without the server.

FLAGS:
  --total                 Project total ("20.000.000")
  --first                 First installment (required)
  --guarantee-units       Guarantee units ("1.500,00")
  --guarantee-unit-value  Guarantee unit value ("37.511,83")
  --rendition             One rendition amount, repeatable
  --strict                Reject zero-amount renditions too
  --locale                Number format locale (default DISBURSEMENT_LOCALE)
  --output                json | yaml

EXIT CODES:
  0  Evaluated (eligible or not)
  1  Rejected input or bad flags

EXAMPLE:
  verify --total 20.000.000 --first 10.000.000 \
    --guarantee-units 1.500,00 --guarantee-unit-value 37.511,83 \
    --rendition 3.000.000 --rendition 2.200.000 --rendition 800.000

SEE ALSO:
  - verification/service.go: Calculate
  - config/config.go: Environment defaults
*/
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/warp/disbursement-engine/config"
	"github.com/warp/disbursement-engine/money"
	"github.com/warp/disbursement-engine/verification"
	"github.com/warp/disbursement-engine/verification/store"
)

// errRejected marks an evaluation that produced no result; the report has
// already been printed.
var errRejected = errors.New("verification rejected")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// =============================================================================
// COMMAND
// =============================================================================

type options struct {
	total              string
	first              string
	guaranteeUnits     string
	guaranteeUnitValue string
	renditions         []string
	strict             bool
	locale             string
	output             string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Check second-installment eligibility",
		Long:          `Evaluates rendition execution and guarantee coverage for a project and suggests the second installment.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.total, "total", "0", "project total amount")
	f.StringVar(&opts.first, "first", "", "first installment amount")
	f.StringVar(&opts.guaranteeUnits, "guarantee-units", "", "guarantee units")
	f.StringVar(&opts.guaranteeUnitValue, "guarantee-unit-value", "", "guarantee unit value")
	f.StringArrayVar(&opts.renditions, "rendition", nil, "rendition amount (repeatable)")
	f.BoolVar(&opts.strict, "strict", false, "reject zero-amount renditions")
	f.StringVar(&opts.locale, "locale", "", "number format locale (default from DISBURSEMENT_LOCALE)")
	f.StringVarP(&opts.output, "output", "o", "json", "output format: json|yaml")
	_ = cmd.MarkFlagRequired("first")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *options) error {
	if opts.output != "json" && opts.output != "yaml" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.locale != "" {
		cfg.Locale = opts.locale
	}
	if cmd.Flags().Changed("strict") {
		cfg.StrictRenditions = opts.strict
	}

	engine, err := cfg.Engine()
	if err != nil {
		return err
	}
	n := cfg.Normalizer()
	svc := verification.NewService(store.NewMemory(), engine, n, zap.NewNop())

	form := verification.Form{
		ProjectTotal:       opts.total,
		FirstInstallment:   opts.first,
		GuaranteeUnits:     opts.guaranteeUnits,
		GuaranteeUnitValue: opts.guaranteeUnitValue,
	}
	for _, amount := range opts.renditions {
		r := verification.NewRendition()
		r.DeclaredAmount = amount
		form.Renditions = append(form.Renditions, r)
	}

	out := svc.Calculate(form)
	if err := render(cmd.OutOrStdout(), opts.output, buildReport(out, n)); err != nil {
		return err
	}
	if !out.OK() {
		return errRejected
	}
	return nil
}

// =============================================================================
// REPORT
// =============================================================================

type report struct {
	Eligible              bool            `json:"eligible" yaml:"eligible"`
	Message               string          `json:"message,omitempty" yaml:"message,omitempty"`
	RenditionTotal        string          `json:"rendition_total,omitempty" yaml:"rendition_total,omitempty"`
	ExecutionThreshold    string          `json:"execution_threshold,omitempty" yaml:"execution_threshold,omitempty"`
	ExecutionPercentage   string          `json:"execution_percentage,omitempty" yaml:"execution_percentage,omitempty"`
	ThresholdGap          string          `json:"threshold_gap,omitempty" yaml:"threshold_gap,omitempty"`
	RenditionConditionMet bool            `json:"rendition_condition_met" yaml:"rendition_condition_met"`
	GuaranteeValue        string          `json:"guarantee_value,omitempty" yaml:"guarantee_value,omitempty"`
	GuaranteeSufficient   bool            `json:"guarantee_sufficient" yaml:"guarantee_sufficient"`
	GuaranteeGap          string          `json:"guarantee_gap,omitempty" yaml:"guarantee_gap,omitempty"`
	SuggestedAmount       string          `json:"suggested_second_installment,omitempty" yaml:"suggested_second_installment,omitempty"`
	SuggestedBasis        string          `json:"suggested_basis,omitempty" yaml:"suggested_basis,omitempty"`
	Rationale             string          `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Renditions            []renditionLine `json:"renditions,omitempty" yaml:"renditions,omitempty"`
}

type renditionLine struct {
	Label  string `json:"label" yaml:"label"`
	Amount string `json:"amount" yaml:"amount"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

var percentDigits = money.FractionDigits{Min: 1, Max: 1}

func buildReport(out verification.Outcome, n money.Normalizer) report {
	if !out.OK() {
		rep := report{Message: out.Message}
		for _, f := range out.Failures {
			rep.Renditions = append(rep.Renditions, renditionLine{
				Label:  fmt.Sprintf("Rendición %d", f.Position),
				Amount: n.FormatGroupedInteger(f.Amount),
				Error:  f.Message,
			})
		}
		return rep
	}

	r := *out.Result
	rep := report{
		Eligible:              r.Eligible,
		RenditionTotal:        n.FormatGroupedInteger(r.RenditionTotal),
		ExecutionThreshold:    n.FormatGroupedInteger(r.ExecutionThreshold),
		ExecutionPercentage:   n.FormatDecimal(r.ExecutionPercentage, percentDigits),
		ThresholdGap:          n.FormatGroupedInteger(r.ThresholdGap),
		RenditionConditionMet: r.RenditionConditionMet,
		GuaranteeValue:        n.FormatGroupedInteger(r.GuaranteeValue),
		GuaranteeSufficient:   r.GuaranteeSufficient,
		GuaranteeGap:          n.FormatGroupedInteger(r.GuaranteeGap),
		SuggestedAmount:       n.FormatGroupedInteger(r.SecondInstallment.Amount),
		SuggestedBasis:        string(r.SecondInstallment.Basis),
		Rationale:             r.SecondInstallment.Rationale,
	}
	for _, c := range r.ConsideredRenditions {
		rep.Renditions = append(rep.Renditions, renditionLine{
			Label:  c.Label,
			Amount: n.FormatGroupedInteger(c.Amount),
		})
	}
	return rep
}

func render(w io.Writer, format string, rep report) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
