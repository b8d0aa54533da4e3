package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/disbursement-engine/money"
	"github.com/warp/disbursement-engine/store/sqlite"
	"github.com/warp/disbursement-engine/verification"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, updated time.Time) verification.Record {
	return verification.Record{
		ID:         id,
		Form:       verification.DemoForm(),
		ShareToken: "token-" + id,
		CreatedAt:  updated,
		UpdatedAt:  updated,
	}
}

// =============================================================================
// SAVE / GET
// =============================================================================

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// GIVEN: A record with a summary
	rec := record("v1", at)
	rec.Summary = &verification.Summary{
		Eligible:            true,
		RenditionTotal:      "6.000.000",
		ExecutionPercentage: "60,0",
		SuggestedAmount:     "10.000.000",
		EvaluatedAt:         at,
	}

	// WHEN: Saved and read back
	require.NoError(t, s.SaveVerification(ctx, rec))
	got, err := s.GetVerification(ctx, "v1")

	// THEN: Everything survives the round trip
	require.NoError(t, err)
	assert.Equal(t, rec.Form, got.Form)
	assert.Equal(t, "token-v1", got.ShareToken)
	require.NotNil(t, got.Summary)
	assert.Equal(t, *rec.Summary, *got.Summary)
	assert.True(t, at.Equal(got.CreatedAt))
}

func TestStore_SaveWithoutSummary(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveVerification(ctx, record("v1", time.Now())))
	got, err := s.GetVerification(ctx, "v1")

	require.NoError(t, err)
	assert.Nil(t, got.Summary)
}

func TestStore_GetMissing(t *testing.T) {
	s := newStore(t)

	_, err := s.GetVerification(context.Background(), "missing")

	assert.ErrorIs(t, err, verification.ErrNotFound)
}

func TestStore_UpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	require.NoError(t, s.SaveVerification(ctx, record("v1", first)))

	// WHEN: The same id is saved again with a different created_at
	again := record("v1", later)
	again.Form.ProjectCode = "ZZ-1"
	require.NoError(t, s.SaveVerification(ctx, again))

	// THEN: Form updated, creation time kept
	got, err := s.GetVerification(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "ZZ-1", got.Form.ProjectCode)
	assert.True(t, first.Equal(got.CreatedAt))
	assert.True(t, later.Equal(got.UpdatedAt))
}

// =============================================================================
// LIST
// =============================================================================

func TestStore_ListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveVerification(ctx, record("old", base)))
	require.NoError(t, s.SaveVerification(ctx, record("new", base.Add(time.Hour))))

	list, err := s.ListVerifications(ctx)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestStore_ListByProject(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	other := record("v2", time.Now())
	other.Form.ProjectCode = "OTHER"
	require.NoError(t, s.SaveVerification(ctx, record("v1", time.Now())))
	require.NoError(t, s.SaveVerification(ctx, other))

	list, err := s.ListByProject(ctx, "OTHER")

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "v2", list[0].ID)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveVerification(ctx, record("v1", time.Now())))

	require.NoError(t, s.Reset(ctx))

	list, err := s.ListVerifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// =============================================================================
// WITH THE SERVICE
// =============================================================================

func TestStore_BacksService(t *testing.T) {
	ctx := context.Background()
	svc := verification.NewService(newStore(t), nil, money.Default, nil)

	rec, err := svc.Save(ctx, "", verification.DemoForm())
	require.NoError(t, err)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "10.000.000", got.Summary.SuggestedAmount)

	out, err := svc.OpenShared(got.ShareToken)
	require.NoError(t, err)
	assert.True(t, out.Result.Eligible)
}
