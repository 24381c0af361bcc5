package store

import (
	"context"
	"sync"

	"github.com/siteproof/linkaudit/internal/report"
)

// MemoryStore is an in-process ReportStore for tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]report.Table
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]report.Table)}
}

// Save implements ReportStore.
func (m *MemoryStore) Save(_ context.Context, name string, t report.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = cloneTable(t)
	return nil
}

// Load implements ReportStore.
func (m *MemoryStore) Load(_ context.Context, name string) (report.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return report.Table{}, ErrNotFound
	}
	return cloneTable(t), nil
}

// cloneTable keeps callers from mutating stored snapshots through shared
// slices.
func cloneTable(t report.Table) report.Table {
	cp := report.Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp.Rows[i] = append([]string(nil), row...)
	}
	return cp
}
