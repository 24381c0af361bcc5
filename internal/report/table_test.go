package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnIndex(t *testing.T) {
	t.Parallel()

	tbl := Table{Headers: []string{"source_url", "link_url", "anchor_text"}}

	idx, err := tbl.ColumnIndex("link_url")
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = tbl.ColumnIndex("missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestValidateRowArity(t *testing.T) {
	t.Parallel()

	tbl := Table{
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"1", "2"}, {"3"}},
	}
	require.Error(t, tbl.Validate())

	tbl.Rows = [][]string{{"1", "2"}}
	require.NoError(t, tbl.Validate())
}

func TestAppendAdoptsFirstPageHeaders(t *testing.T) {
	t.Parallel()

	var tbl Table
	require.NoError(t, tbl.Append(Table{
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"1", "2"}},
	}))
	require.NoError(t, tbl.Append(Table{
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"3", "4"}},
	}))

	require.Equal(t, []string{"a", "b"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)

	err := tbl.Append(Table{Headers: []string{"a"}})
	require.Error(t, err)
}
