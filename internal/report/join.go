package report

import "fmt"

// DuplicatePolicy decides what happens when the same key value appears on
// multiple left rows. CollectAll emits one output row per left/right pair and
// is the default; the first/last variants exist for callers that want the
// historical single-match behavior, made explicit instead of silent.
type DuplicatePolicy int

const (
	CollectAll DuplicatePolicy = iota
	KeepFirst
	KeepLast
)

// Side names which input table an output column is projected from.
type Side int

const (
	LeftSide Side = iota
	RightSide
)

// OutputColumn projects one column of the join result. As renames the column
// in the output; empty As keeps the source name.
type OutputColumn struct {
	Side   Side
	Column string
	As     string
}

// JoinSpec describes a right-driven equality join. Every right row is matched
// against left rows by key; right rows without a match are dropped, and left
// rows are never emitted on their own. The right side drives the join because
// it is, by construction, the subset of interest.
type JoinSpec struct {
	LeftKey  string
	RightKey string
	Policy   DuplicatePolicy
	Output   []OutputColumn
}

// Join correlates right rows with left rows per spec. Output row count is at
// most len(right.Rows) for KeepFirst/KeepLast, and len(right.Rows) times the
// left-key multiplicity for CollectAll.
func Join(left, right Table, spec JoinSpec) (Table, error) {
	if len(spec.Output) == 0 {
		return Table{}, fmt.Errorf("join requires at least one output column")
	}
	leftKey, err := left.ColumnIndex(spec.LeftKey)
	if err != nil {
		return Table{}, fmt.Errorf("left key: %w", err)
	}
	rightKey, err := right.ColumnIndex(spec.RightKey)
	if err != nil {
		return Table{}, fmt.Errorf("right key: %w", err)
	}

	leftCols, rightCols, headers, err := resolveOutput(left, right, spec.Output)
	if err != nil {
		return Table{}, err
	}

	matches := make(map[string][]int, len(left.Rows))
	for i, row := range left.Rows {
		key := row[leftKey]
		switch spec.Policy {
		case KeepFirst:
			if _, ok := matches[key]; !ok {
				matches[key] = []int{i}
			}
		case KeepLast:
			matches[key] = []int{i}
		default:
			matches[key] = append(matches[key], i)
		}
	}

	out := Table{Headers: headers}
	for _, rrow := range right.Rows {
		for _, li := range matches[rrow[rightKey]] {
			lrow := left.Rows[li]
			row := make([]string, 0, len(spec.Output))
			for n, col := range spec.Output {
				if col.Side == LeftSide {
					row = append(row, lrow[leftCols[n]])
				} else {
					row = append(row, rrow[rightCols[n]])
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// resolveOutput maps projected columns to source indexes up front so a bad
// projection fails before any row work.
func resolveOutput(left, right Table, output []OutputColumn) (map[int]int, map[int]int, []string, error) {
	leftCols := make(map[int]int)
	rightCols := make(map[int]int)
	headers := make([]string, 0, len(output))
	for n, col := range output {
		name := col.As
		if name == "" {
			name = col.Column
		}
		headers = append(headers, name)
		if col.Side == LeftSide {
			idx, err := left.ColumnIndex(col.Column)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("output column: %w", err)
			}
			leftCols[n] = idx
			continue
		}
		idx, err := right.ColumnIndex(col.Column)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("output column: %w", err)
		}
		rightCols[n] = idx
	}
	return leftCols, rightCols, headers, nil
}
