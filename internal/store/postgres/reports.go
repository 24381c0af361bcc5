package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/siteproof/linkaudit/internal/report"
	"github.com/siteproof/linkaudit/internal/store"
)

// ReportStore implements store.ReportStore on a JSONB payload per table name.
type ReportStore struct {
	db DB
}

// NewReportStore wraps a connection pool (or a pgxmock in tests).
func NewReportStore(db DB) *ReportStore {
	return &ReportStore{db: db}
}

// Save implements store.ReportStore with an upsert; every save is a full
// overwrite of the named table.
func (s *ReportStore) Save(ctx context.Context, name string, t report.Table) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode report table %q: %w", name, err)
	}
	query := `
		INSERT INTO report_tables (name, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at;
	`
	if _, err := s.db.Exec(ctx, query, name, payload); err != nil {
		return fmt.Errorf("save report table %q: %w", name, err)
	}
	return nil
}

// Load implements store.ReportStore.
func (s *ReportStore) Load(ctx context.Context, name string) (report.Table, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, `SELECT payload FROM report_tables WHERE name = $1;`, name).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return report.Table{}, store.ErrNotFound
	}
	if err != nil {
		return report.Table{}, fmt.Errorf("load report table %q: %w", name, err)
	}
	var t report.Table
	if err := json.Unmarshal(payload, &t); err != nil {
		return report.Table{}, fmt.Errorf("decode report table %q: %w", name, err)
	}
	return t, nil
}
