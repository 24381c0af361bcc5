package report

// UniqueColumnValues returns the distinct values of the named column in
// first-occurrence order. Empty values are kept; they are distinct data, not
// absence, and dropping them is the caller's decision.
func UniqueColumnValues(t Table, column string) ([]string, error) {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(t.Rows))
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		v := row[idx]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values, nil
}
