package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/warp/disbursement-engine/eligibility"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DISBURSEMENT_LOCALE", "es-CL")
	t.Setenv("DISBURSEMENT_STRICT_RENDITIONS", "false")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVerify_EligibleJSON(t *testing.T) {
	out, err := execute(t,
		"--total", "20.000.000", "--first", "10.000.000",
		"--guarantee-units", "1.500,00", "--guarantee-unit-value", "37.511,83",
		"--rendition", "3.000.000", "--rendition", "2.200.000", "--rendition", "800.000")

	require.NoError(t, err)
	var rep report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.True(t, rep.Eligible)
	assert.Equal(t, "6.000.000", rep.RenditionTotal)
	assert.Equal(t, "60,0", rep.ExecutionPercentage)
	assert.Equal(t, "56.267.745", rep.GuaranteeValue)
	assert.Equal(t, "10.000.000", rep.SuggestedAmount)
	assert.Equal(t, string(eligibility.BasisRemainder), rep.SuggestedBasis)
	assert.Len(t, rep.Renditions, 3)
}

func TestVerify_YAMLWithoutTotal(t *testing.T) {
	out, err := execute(t, "--first", "5.000.000", "--rendition", "1.000.000", "-o", "yaml")

	require.NoError(t, err)
	var rep report
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep), out)
	assert.False(t, rep.Eligible)
	assert.Equal(t, "2.000.000", rep.ThresholdGap)
	assert.Equal(t, "5.000.000", rep.SuggestedAmount)
	assert.Equal(t, eligibility.RationaleWithoutTotal, rep.Rationale)
}

func TestVerify_ZeroInstallmentRejected(t *testing.T) {
	out, err := execute(t, "--first", "0")

	assert.ErrorIs(t, err, errRejected)
	var rep report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, eligibility.MessageInvalidInstallment, rep.Message)
}

func TestVerify_StrictRejectsZeroRow(t *testing.T) {
	out, err := execute(t, "--first", "10.000.000", "--rendition", "6.000.000", "--rendition", "0", "--strict")

	assert.ErrorIs(t, err, errRejected)
	var rep report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, eligibility.MessageCorrectRenditionErrors, rep.Message)
	require.Len(t, rep.Renditions, 1)
	assert.Equal(t, "Rendición 2", rep.Renditions[0].Label)
	assert.Equal(t, eligibility.MessageRenditionNotPositive, rep.Renditions[0].Error)
}

func TestVerify_BadFlags(t *testing.T) {
	_, err := execute(t, "--total", "1")
	assert.Error(t, err, "--first is required")

	_, err = execute(t, "--first", "1", "--output", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}
