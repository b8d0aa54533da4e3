/*
Package sqlite provides a SQLite-backed verification.Store.

PURPOSE:
  Persists saved verification forms so a reviewer can reopen them later. The
  form itself is stored as JSON (the same payload a share link carries); the
  summary of the last successful evaluation is kept in plain columns so the
  list view never has to re-run the engine.

KEY TABLES:
  verifications: One row per saved form, upserted by id

INDEXES:
  - idx_verifications_updated_at: List ordering (most recent first)
  - idx_verifications_project_code: Lookups by project code

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/disbursement.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := verification.NewService(store, engine, money.Default, logger)

SEE ALSO:
  - verification/store.go: Interface definition
  - verification/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/disbursement-engine/verification"
)

// Store implements verification.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ verification.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS verifications (
		id TEXT PRIMARY KEY,
		project_code TEXT NOT NULL DEFAULT '',
		form_json TEXT NOT NULL,
		share_token TEXT NOT NULL,
		eligible INTEGER,
		rendition_total TEXT,
		execution_percentage TEXT,
		suggested_amount TEXT,
		evaluated_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verifications_updated_at
		ON verifications(updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_verifications_project_code
		ON verifications(project_code);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// VERIFICATIONS
// =============================================================================

// SaveVerification inserts or replaces a verification. created_at is kept from
// the first save.
func (s *Store) SaveVerification(ctx context.Context, r verification.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	formJSON, err := json.Marshal(r.Form)
	if err != nil {
		return fmt.Errorf("marshal form: %w", err)
	}

	var (
		eligible                     sql.NullBool
		total, percentage, suggested sql.NullString
		evaluatedAt                  sql.NullString
	)
	if r.Summary != nil {
		eligible = sql.NullBool{Bool: r.Summary.Eligible, Valid: true}
		total = nullString(r.Summary.RenditionTotal)
		percentage = nullString(r.Summary.ExecutionPercentage)
		suggested = nullString(r.Summary.SuggestedAmount)
		evaluatedAt = nullString(formatTime(r.Summary.EvaluatedAt))
	}

	query := `
		INSERT INTO verifications (id, project_code, form_json, share_token,
			eligible, rendition_total, execution_percentage, suggested_amount, evaluated_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_code = excluded.project_code,
			form_json = excluded.form_json,
			share_token = excluded.share_token,
			eligible = excluded.eligible,
			rendition_total = excluded.rendition_total,
			execution_percentage = excluded.execution_percentage,
			suggested_amount = excluded.suggested_amount,
			evaluated_at = excluded.evaluated_at,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Form.ProjectCode, string(formJSON), r.ShareToken,
		eligible, total, percentage, suggested, evaluatedAt,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	return nil
}

const selectVerification = `
	SELECT id, form_json, share_token,
		eligible, rendition_total, execution_percentage, suggested_amount, evaluated_at,
		created_at, updated_at
	FROM verifications`

// GetVerification retrieves a verification by ID.
func (s *Store) GetVerification(ctx context.Context, id string) (verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectVerification+" WHERE id = ?", id)
	if err != nil {
		return verification.Record{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return verification.Record{}, err
		}
		return verification.Record{}, verification.ErrNotFound
	}
	return scanVerification(rows)
}

// ListVerifications returns all verifications, most recently updated first.
func (s *Store) ListVerifications(ctx context.Context) ([]verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectVerification+" ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []verification.Record
	for rows.Next() {
		r, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListByProject returns the verifications saved for a project code.
func (s *Store) ListByProject(ctx context.Context, projectCode string) ([]verification.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		selectVerification+" WHERE project_code = ? ORDER BY updated_at DESC, id", projectCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []verification.Record
	for rows.Next() {
		r, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanVerification(rows *sql.Rows) (verification.Record, error) {
	var (
		r                            verification.Record
		formJSON                     string
		eligible                     sql.NullBool
		total, percentage, suggested sql.NullString
		evaluatedAt                  sql.NullString
		createdAt, updatedAt         string
	)
	err := rows.Scan(&r.ID, &formJSON, &r.ShareToken,
		&eligible, &total, &percentage, &suggested, &evaluatedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return verification.Record{}, err
	}

	if err := json.Unmarshal([]byte(formJSON), &r.Form); err != nil {
		return verification.Record{}, fmt.Errorf("decode form %s: %w", r.ID, err)
	}
	if r.Form.Renditions == nil {
		r.Form.Renditions = []verification.FormRendition{}
	}
	if eligible.Valid {
		r.Summary = &verification.Summary{
			Eligible:            eligible.Bool,
			RenditionTotal:      total.String,
			ExecutionPercentage: percentage.String,
			SuggestedAmount:     suggested.String,
			EvaluatedAt:         parseTime(evaluatedAt.String),
		}
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM verifications")
	return err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed-width so that ORDER BY on the text column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
