// Package report defines the tabular dataset exchanged with the remote audit
// system and the pure dedup/join operations the pipeline runs over it.
package report

import (
	"fmt"
)

// Table is a headers-plus-rows dataset. Headers are the authoritative means of
// locating a column; positional assumptions do not survive across remote
// releases, so every consumer resolves columns by identifier.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Empty reports whether the table carries no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// ColumnIndex resolves a column identifier to its position.
func (t Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.Headers {
		if h == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %q not found in headers %v", name, t.Headers)
}

// Validate checks that every row's arity matches the header count.
func (t Table) Validate() error {
	width := len(t.Headers)
	for i, row := range t.Rows {
		if len(row) != width {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), width)
		}
	}
	return nil
}

// Append adds rows from another table. The other table's headers must match
// exactly; the remote API guarantees header stability only within a single
// paginated query, which is the only case Append serves.
func (t *Table) Append(page Table) error {
	if len(t.Headers) == 0 {
		t.Headers = page.Headers
	}
	if len(page.Headers) != 0 && len(page.Headers) != len(t.Headers) {
		return fmt.Errorf("page header count %d does not match %d", len(page.Headers), len(t.Headers))
	}
	t.Rows = append(t.Rows, page.Rows...)
	return nil
}
