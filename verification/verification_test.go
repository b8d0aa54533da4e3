package verification_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/warp/disbursement-engine/eligibility"
	"github.com/warp/disbursement-engine/money"
	"github.com/warp/disbursement-engine/verification"
	"github.com/warp/disbursement-engine/verification/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T, rule eligibility.RenditionRule) *verification.Service {
	t.Helper()
	engine, err := eligibility.NewEngine(eligibility.Policy{
		ThresholdRatio: eligibility.DefaultThresholdRatio,
		RenditionRule:  rule,
	})
	require.NoError(t, err)
	return verification.NewService(store.NewMemory(), engine, money.Default, zap.NewNop())
}

// =============================================================================
// FORM
// =============================================================================

func TestForm_Input_ParsesRawText(t *testing.T) {
	in := verification.DemoForm().Input(money.Default)

	assert.Equal(t, "20000000", in.ProjectTotal.String())
	assert.Equal(t, "10000000", in.FirstInstallment.String())
	assert.Equal(t, "1500", in.GuaranteeUnits.String())
	assert.Equal(t, "37511.83", in.GuaranteeUnitValue.String())
	require.Len(t, in.Renditions, 3)
	assert.Equal(t, "2200000", in.Renditions[1].Amount.String())
}

func TestForm_Input_UnparseableDecimalBecomesZero(t *testing.T) {
	f := verification.DemoForm()
	f.GuaranteeUnits = "mil quinientas"

	in := f.Input(money.Default)

	assert.True(t, in.GuaranteeUnits.IsZero())
}

func TestForm_Commit_ReformatsFields(t *testing.T) {
	f := verification.Form{
		ProjectTotal:       "20000000",
		FirstInstallment:   "CLP$10000000",
		InstallmentCount:   "2 cuotas",
		GuaranteeUnits:     "1500",
		GuaranteeUnitValue: "37511,834",
		Renditions:         []verification.FormRendition{{ID: "r1", DeclaredAmount: "3000000"}},
	}

	out := f.Commit(money.Default)

	assert.Equal(t, "20.000.000", out.ProjectTotal)
	assert.Equal(t, "10.000.000", out.FirstInstallment)
	assert.Equal(t, "2", out.InstallmentCount)
	assert.Equal(t, "1.500,00", out.GuaranteeUnits)
	assert.Equal(t, "37.511,83", out.GuaranteeUnitValue)
	assert.Equal(t, "3.000.000", out.Renditions[0].DeclaredAmount)
	assert.Equal(t, "3000000", f.Renditions[0].DeclaredAmount, "receiver untouched")
}

func TestForm_RenditionEdits(t *testing.T) {
	f := verification.Form{Renditions: []verification.FormRendition{
		{ID: "r1", DeclaredAmount: "0", Error: "El monto rendido debe ser positivo."},
	}}

	added := f.AddRendition()
	require.Len(t, added.Renditions, 2)
	assert.Equal(t, "0", added.Renditions[1].DeclaredAmount)
	assert.NotEmpty(t, added.Renditions[1].ID)
	assert.Len(t, f.Renditions, 1, "receiver untouched")

	edited := added.EditRendition("r1", "500.000")
	assert.Equal(t, "500.000", edited.Renditions[0].DeclaredAmount)
	assert.Empty(t, edited.Renditions[0].Error, "editing clears the error")
	assert.NotEmpty(t, added.Renditions[0].Error)

	removed := edited.RemoveRendition("r1")
	require.Len(t, removed.Renditions, 1)
	assert.Equal(t, added.Renditions[1].ID, removed.Renditions[0].ID)
	assert.Len(t, edited.Renditions, 2)
}

// =============================================================================
// SHARE TOKENS
// =============================================================================

func TestShareToken_RoundTripDropsErrors(t *testing.T) {
	f := verification.DemoForm()
	f.Renditions[0].Error = "stale"

	token, err := verification.EncodeShareToken(f)
	require.NoError(t, err)

	got, err := verification.DecodeShareToken(token)
	require.NoError(t, err)
	assert.Equal(t, f.ProjectCode, got.ProjectCode)
	assert.Equal(t, f.GuaranteeUnitValue, got.GuaranteeUnitValue)
	require.Len(t, got.Renditions, 3)
	assert.Equal(t, f.Renditions[2].ID, got.Renditions[2].ID)
	assert.Empty(t, got.Renditions[0].Error)
}

func TestShareToken_AcceptsStandardBase64WithDefaults(t *testing.T) {
	payload := `{"codigoProyecto":"XX-1","primeraCuota":"5.000.000"}`
	token := base64.StdEncoding.EncodeToString([]byte(payload))

	got, err := verification.DecodeShareToken(token)

	require.NoError(t, err)
	assert.Equal(t, "XX-1", got.ProjectCode)
	assert.Equal(t, "0", got.ProjectTotal)
	assert.Equal(t, "0", got.InstallmentCount)
	assert.NotNil(t, got.Renditions)
}

// btoa encodes one byte per UTF-16 code unit, so browser links carry Latin-1.
func btoa(t *testing.T, s string) string {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString([]byte(b))
}

func TestShareToken_DecodesBrowserLatin1Link(t *testing.T) {
	// GIVEN: A link built in the browser with an accented manager name
	token := btoa(t, `{"codigoProyecto":"AB-123456-78901-CD","nombreEncargado":"Juan Pérez González","primeraCuota":"10.000.000","rendiciones":[]}`)

	// WHEN: Decoded
	got, err := verification.DecodeShareToken(token)

	// THEN: Accents survive
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez González", got.ManagerName)
	assert.Equal(t, "10.000.000", got.FirstInstallment)
}

func TestShareToken_EncodesForBrowser(t *testing.T) {
	token, err := verification.EncodeShareToken(verification.DemoForm())
	require.NoError(t, err)

	// atob yields Latin-1 bytes, one per character
	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "P\xe9rez")
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	require.NoError(t, err)
	assert.Contains(t, string(text), `"nombreEncargado":"Juan Pérez González"`)
}

func TestShareToken_RoundTripBeyondLatin1(t *testing.T) {
	f := verification.DemoForm()
	f.ManagerName = "Ana € Núñez 😀"

	token, err := verification.EncodeShareToken(f)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `\u20ac`)

	got, err := verification.DecodeShareToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Ana € Núñez 😀", got.ManagerName)
}

func TestShareToken_PlusLostToQueryDecoding(t *testing.T) {
	token, err := verification.EncodeShareToken(verification.DemoForm())
	require.NoError(t, err)

	got, err := verification.DecodeShareToken(strings.ReplaceAll(token, "+", " "))

	require.NoError(t, err)
	assert.Equal(t, "AB-123456-78901-CD", got.ProjectCode)
}

func TestShareToken_Invalid(t *testing.T) {
	for _, token := range []string{"", "%%%", base64.RawURLEncoding.EncodeToString([]byte("not json"))} {
		_, err := verification.DecodeShareToken(token)
		assert.ErrorIs(t, err, verification.ErrInvalidShareToken, token)
	}
}

// =============================================================================
// SERVICE
// =============================================================================

func TestService_Calculate_DemoFormEligible(t *testing.T) {
	svc := newTestService(t, eligibility.RuleNonNegative)

	out := svc.Calculate(verification.DemoForm())

	require.True(t, out.OK())
	assert.Empty(t, out.Message)
	assert.True(t, out.Result.Eligible)
	assert.Equal(t, "10000000", out.Result.SecondInstallment.Amount.String())
}

func TestService_Calculate_ZeroInstallment(t *testing.T) {
	svc := newTestService(t, eligibility.RuleNonNegative)
	f := verification.DemoForm()
	f.FirstInstallment = "0"

	out := svc.Calculate(f)

	assert.False(t, out.OK())
	assert.Equal(t, eligibility.MessageInvalidInstallment, out.Message)
	assert.Empty(t, out.Failures)
}

func TestService_Calculate_StrictRuleAnnotatesRows(t *testing.T) {
	svc := newTestService(t, eligibility.RuleStrictlyPositive)
	f := verification.DemoForm().AddRendition()

	out := svc.Calculate(f)

	assert.False(t, out.OK())
	assert.Equal(t, eligibility.MessageCorrectRenditionErrors, out.Message)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, 4, out.Failures[0].Position)
	assert.True(t, out.Form.HasErrors())
	assert.Equal(t, eligibility.MessageRenditionNotPositive, out.Form.Renditions[3].Error)
	assert.False(t, f.HasErrors(), "caller's form untouched")

	// Fixing the row clears its error and the calculation goes through
	fixed := out.Form.EditRendition(out.Form.Renditions[3].ID, "100")
	assert.False(t, fixed.HasErrors())
	assert.True(t, svc.Calculate(fixed).OK())
}

func TestService_Calculate_ZeroRowAcceptedByDefault(t *testing.T) {
	svc := newTestService(t, eligibility.RuleNonNegative)

	out := svc.Calculate(verification.DemoForm().AddRendition())

	require.True(t, out.OK())
	assert.Len(t, out.Result.ConsideredRenditions, 4)
}

func TestService_SaveGetList(t *testing.T) {
	svc := newTestService(t, eligibility.RuleNonNegative)
	ctx := context.Background()

	rec, err := svc.Save(ctx, "", verification.DemoForm())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, rec.ShareToken)
	require.NotNil(t, rec.Summary)
	assert.True(t, rec.Summary.Eligible)
	assert.Equal(t, "6.000.000", rec.Summary.RenditionTotal)
	assert.Equal(t, "60,0", rec.Summary.ExecutionPercentage)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ShareToken, got.ShareToken)

	// Saving again under the same id keeps the creation time
	f := got.Form.EditRendition(got.Form.Renditions[0].ID, "0")
	again, err := svc.Save(ctx, rec.ID, f)
	require.NoError(t, err)
	assert.Equal(t, rec.CreatedAt, again.CreatedAt)
	assert.False(t, again.Summary.Eligible)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_SaveWithoutResult(t *testing.T) {
	svc := newTestService(t, eligibility.RuleNonNegative)
	f := verification.DemoForm()
	f.FirstInstallment = ""

	rec, err := svc.Save(context.Background(), "", f)

	require.NoError(t, err)
	assert.Nil(t, rec.Summary, "progress can be saved before the form is valid")
}

func TestService_GetMissing(t *testing.T) {
	svc := newTestService(t, eligibility.RuleNonNegative)

	_, err := svc.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, verification.ErrNotFound)
}

func TestService_OpenShared(t *testing.T) {
	svc := newTestService(t, eligibility.RuleNonNegative)
	token, err := verification.EncodeShareToken(verification.DemoForm())
	require.NoError(t, err)

	out, err := svc.OpenShared(token)

	require.NoError(t, err)
	assert.True(t, out.OK())

	_, err = svc.OpenShared("garbage!")
	assert.ErrorIs(t, err, verification.ErrInvalidShareToken)
}

// =============================================================================
// REFRESH
// =============================================================================

func TestService_Refresh_PolicyChange(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	// GIVEN: Two forms saved under the lenient rule, one with a zero row
	lenient := verification.NewService(mem, nil, money.Default, zap.NewNop())
	plain, err := lenient.Save(ctx, "", verification.DemoForm())
	require.NoError(t, err)
	withZero, err := lenient.Save(ctx, "", verification.DemoForm().AddRendition())
	require.NoError(t, err)
	require.NotNil(t, withZero.Summary)

	// WHEN: The strict rule is switched on and summaries are refreshed
	strict := newTestService(t, eligibility.RuleStrictlyPositive)
	strict.Store = mem
	stats, err := strict.Refresh(ctx)

	// THEN: Only the form with the zero row changed
	require.NoError(t, err)
	assert.Equal(t, verification.RefreshStats{Checked: 2, Updated: 1}, stats)

	got, err := strict.Get(ctx, withZero.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Summary)
	assert.Equal(t, withZero.UpdatedAt, got.UpdatedAt, "refresh is not an edit")

	kept, err := strict.Get(ctx, plain.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept.Summary)

	// A second pass has nothing to do
	stats, err = strict.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Updated)
}

// staleAfterPolicyChange saves a verification with a zero-amount row under the
// lenient policy and returns a strict service over the same store.
func staleAfterPolicyChange(t *testing.T) (*store.Memory, string, *verification.Service) {
	t.Helper()
	mem := store.NewMemory()
	lenient := verification.NewService(mem, nil, money.Default, zap.NewNop())
	rec, err := lenient.Save(context.Background(), "", verification.DemoForm().AddRendition())
	require.NoError(t, err)
	require.NotNil(t, rec.Summary)

	strict := newTestService(t, eligibility.RuleStrictlyPositive)
	strict.Store = mem
	return mem, rec.ID, strict
}

func TestRefreshScheduler_RunsOnStart(t *testing.T) {
	mem, id, strict := staleAfterPolicyChange(t)
	scheduler := verification.NewRefreshScheduler(strict, time.Hour)

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		got, err := mem.GetVerification(context.Background(), id)
		return err == nil && got.Summary == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefreshScheduler_SinglePassWithoutInterval(t *testing.T) {
	// GIVEN: A stale summary and no periodic interval
	mem, id, strict := staleAfterPolicyChange(t)
	scheduler := verification.NewRefreshScheduler(strict, 0)
	assert.False(t, scheduler.Periodic)

	// WHEN: Started
	scheduler.Start()

	// THEN: The startup pass still refreshes it
	assert.Eventually(t, func() bool {
		got, err := mem.GetVerification(context.Background(), id)
		return err == nil && got.Summary == nil
	}, 2*time.Second, 10*time.Millisecond)
	scheduler.Stop()
	scheduler.Stop()
}
