// Package store defines the persistence surface for intermediate and final
// report tables. Each save is a full overwrite; the tables are snapshots, not
// logs.
package store

import (
	"context"
	"errors"

	"github.com/siteproof/linkaudit/internal/report"
)

// Table names the pipeline persists under. The primary-stage handler writes
// the first two, the secondary-stage handler reads primary_links and writes
// the last two.
const (
	TablePrimaryLinks = "primary_links"
	TableUniqueURLs   = "unique_urls"
	TableBrokenLinks  = "broken_links"
	TableFinalReport  = "final_report"
)

// ErrNotFound reports an absent table. The secondary stage treats an absent
// primary table as empty rather than failing.
var ErrNotFound = errors.New("report table not found")

// ReportStore persists named report tables.
type ReportStore interface {
	// Save overwrites the named table.
	Save(ctx context.Context, name string, t report.Table) error
	// Load returns the named table, or ErrNotFound.
	Load(ctx context.Context, name string) (report.Table, error)
}
