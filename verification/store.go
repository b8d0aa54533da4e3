package verification

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a verification does not exist.
var ErrNotFound = errors.New("verification not found")

// Summary is the headline of the last successful evaluation of a saved form.
// Amounts are formatted strings; the form remains the source of truth.
type Summary struct {
	Eligible            bool
	RenditionTotal      string
	ExecutionPercentage string
	SuggestedAmount     string
	EvaluatedAt         time.Time
}

// Record is a saved verification.
type Record struct {
	ID         string
	Form       Form
	ShareToken string
	Summary    *Summary // nil when the form did not evaluate
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store persists verification records. Saving an existing ID replaces it.
//
// IMPLEMENTATIONS:
//   - verification/store.Memory: in-memory, for tests and dev
//   - store/sqlite.Store: SQLite
type Store interface {
	SaveVerification(ctx context.Context, r Record) error
	GetVerification(ctx context.Context, id string) (Record, error)
	ListVerifications(ctx context.Context) ([]Record, error)
	ListByProject(ctx context.Context, projectCode string) ([]Record, error)
}
