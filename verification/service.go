package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/disbursement-engine/eligibility"
	"github.com/warp/disbursement-engine/money"
)

// =============================================================================
// OUTCOME
// =============================================================================

// Outcome is what a "Calculate" action shows: either a Result, or a
// top-level Message with per-row errors on Form. Never both.
type Outcome struct {
	Form     Form
	Result   *eligibility.Result
	Message  string
	Failures []eligibility.RenditionFailure
}

// OK reports whether a result was produced.
func (o Outcome) OK() bool { return o.Result != nil }

// =============================================================================
// SERVICE
// =============================================================================

// Service runs calculations and manages saved verifications.
type Service struct {
	Store      Store
	Engine     *eligibility.Engine
	Normalizer money.Normalizer
	Logger     *zap.Logger

	now func() time.Time
}

func NewService(store Store, engine *eligibility.Engine, n money.Normalizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = &eligibility.Engine{Policy: eligibility.DefaultPolicy(), Normalizer: n}
	}
	return &Service{
		Store:      store,
		Engine:     engine,
		Normalizer: n,
		Logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Calculate evaluates the form. Validation failures are part of the Outcome,
// not errors.
func (s *Service) Calculate(form Form) Outcome {
	res, err := s.Engine.Evaluate(form.Input(s.Normalizer))
	if err == nil {
		return Outcome{Form: form.Annotate(nil), Result: &res}
	}

	var verr *eligibility.ValidationError
	if errors.As(err, &verr) {
		s.Logger.Debug("renditions rejected", zap.Int("failures", len(verr.Failures)))
		return Outcome{Form: form.Annotate(verr), Message: verr.Message(), Failures: verr.Failures}
	}

	msg := eligibility.UserMessage(err)
	if msg == "" {
		msg = err.Error()
	}
	s.Logger.Debug("calculation rejected", zap.Error(err))
	// rows keep whatever errors they had; the guard fires before entry checks
	return Outcome{Form: form, Message: msg}
}

// Save stores the form under id, or under a new id when id is empty.
func (s *Service) Save(ctx context.Context, id string, form Form) (Record, error) {
	now := s.now()
	created := now
	if id == "" {
		id = uuid.NewString()
	} else if existing, err := s.Store.GetVerification(ctx, id); err == nil {
		created = existing.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return Record{}, fmt.Errorf("load verification %s: %w", id, err)
	}

	form = form.Annotate(nil)
	token, err := EncodeShareToken(form)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:         id,
		Form:       form,
		ShareToken: token,
		CreatedAt:  created,
		UpdatedAt:  now,
	}
	if out := s.Calculate(form); out.OK() {
		rec.Summary = s.summarize(*out.Result, now)
	}

	if err := s.Store.SaveVerification(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save verification %s: %w", id, err)
	}
	s.Logger.Info("verification saved",
		zap.String("id", id),
		zap.String("project_code", form.ProjectCode),
		zap.Bool("evaluated", rec.Summary != nil))
	return rec, nil
}

// Get returns a saved verification or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.Store.GetVerification(ctx, id)
}

// List returns every saved verification.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.Store.ListVerifications(ctx)
}

// ListByProject returns the saved verifications of one project.
func (s *Service) ListByProject(ctx context.Context, projectCode string) ([]Record, error) {
	return s.Store.ListByProject(ctx, projectCode)
}

// OpenShared decodes a share token and evaluates the form it carries.
func (s *Service) OpenShared(token string) (Outcome, error) {
	form, err := DecodeShareToken(token)
	if err != nil {
		return Outcome{}, err
	}
	return s.Calculate(form), nil
}

// RefreshStats counts the outcome of a Refresh pass.
type RefreshStats struct {
	Checked int
	Updated int
	Failed  int
}

// Refresh re-evaluates every saved verification with the current engine and
// stores the summaries that changed. UpdatedAt is left alone: the form did not
// change, only the verdict on it.
func (s *Service) Refresh(ctx context.Context) (RefreshStats, error) {
	var stats RefreshStats
	records, err := s.Store.ListVerifications(ctx)
	if err != nil {
		return stats, fmt.Errorf("list verifications: %w", err)
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Checked++

		var summary *Summary
		if out := s.Calculate(rec.Form); out.OK() {
			summary = s.summarize(*out.Result, s.now())
		}
		if sameVerdict(rec.Summary, summary) {
			continue
		}

		rec.Summary = summary
		if err := s.Store.SaveVerification(ctx, rec); err != nil {
			stats.Failed++
			s.Logger.Warn("refresh failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		stats.Updated++
	}
	return stats, nil
}

func sameVerdict(a, b *Summary) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Eligible == b.Eligible &&
		a.RenditionTotal == b.RenditionTotal &&
		a.ExecutionPercentage == b.ExecutionPercentage &&
		a.SuggestedAmount == b.SuggestedAmount
}

func (s *Service) summarize(r eligibility.Result, at time.Time) *Summary {
	return &Summary{
		Eligible:            r.Eligible,
		RenditionTotal:      s.Normalizer.FormatGroupedInteger(r.RenditionTotal),
		ExecutionPercentage: s.Normalizer.FormatDecimal(r.ExecutionPercentage, money.FractionDigits{Min: 1, Max: 1}),
		SuggestedAmount:     s.Normalizer.FormatGroupedInteger(r.SecondInstallment.Amount),
		EvaluatedAt:         at,
	}
}
