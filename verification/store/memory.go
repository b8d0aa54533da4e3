// Package store provides in-memory verification.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/disbursement-engine/verification"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[string]verification.Record
}

var _ verification.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{records: make(map[string]verification.Record)}
}

// SaveVerification inserts or replaces a record. The form is copied so later
// edits by the caller do not leak into the store.
func (m *Memory) SaveVerification(_ context.Context, r verification.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = cloneRecord(r)
	return nil
}

func (m *Memory) GetVerification(_ context.Context, id string) (verification.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return verification.Record{}, verification.ErrNotFound
	}
	return cloneRecord(r), nil
}

// ListVerifications returns records, most recently updated first.
func (m *Memory) ListVerifications(_ context.Context) ([]verification.Record, error) {
	return m.list(func(verification.Record) bool { return true }), nil
}

func (m *Memory) ListByProject(_ context.Context, projectCode string) ([]verification.Record, error) {
	return m.list(func(r verification.Record) bool { return r.Form.ProjectCode == projectCode }), nil
}

func (m *Memory) list(keep func(verification.Record) bool) []verification.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]verification.Record, 0, len(m.records))
	for _, r := range m.records {
		if keep(r) {
			result = append(result, cloneRecord(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result
}

func cloneRecord(r verification.Record) verification.Record {
	r.Form = r.Form.Clone()
	if r.Summary != nil {
		s := *r.Summary
		r.Summary = &s
	}
	return r
}
