package partition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/encoding"
)

func smallCSR() (rowptr, colind []int, values []float64) {
	// 3x4, rows: [0,1,2] [1,2] [3]
	rowptr = []int{0, 3, 5, 6}
	colind = []int{0, 1, 2, 1, 2, 3}
	values = []float64{1, 2, 3, 4, 5, 6}
	return
}

func TestFromCSRElementCount(t *testing.T) {
	rowptr, colind, values := smallCSR()
	p, err := FromCSR(0, 3, 4, rowptr, colind, values, 0)
	require.NoError(t, err)
	require.Equal(t, 6, p.NNZ())
	require.Equal(t, encoding.Horizontal, p.Type)

	row1 := p.IterateRow(1)
	require.Len(t, row1, 3)
	require.Equal(t, 1, row1[0].Col)
	require.Equal(t, 2, row1[1].Col)
	require.Equal(t, 3, row1[2].Col)
}

func TestFromCSRSubRange(t *testing.T) {
	rowptr, colind, values := smallCSR()
	p, err := FromCSR(1, 2, 4, rowptr, colind, values, 0)
	require.NoError(t, err)
	require.Equal(t, 3, p.NNZ())
	require.Equal(t, 1, p.RowStart)
	row1 := p.IterateRow(1)
	require.Len(t, row1, 2)
}

func TestFromCSRRejectsBadRowptr(t *testing.T) {
	_, _, values := smallCSR()
	_, err := FromCSR(0, 3, 4, []int{0, 3, 2, 6}, []int{0, 1, 2, 1, 2, 3}, values, 0)
	require.Error(t, err)
}

func TestTransformVerticalReordersByColumn(t *testing.T) {
	rowptr, colind, values := smallCSR()
	p, err := FromCSR(0, 3, 4, rowptr, colind, values, 0)
	require.NoError(t, err)

	p.Transform(encoding.Vertical)
	require.Equal(t, encoding.Vertical, p.Type)
	// column 1 has two elements (row1,row2); they should now be adjacent.
	require.Equal(t, p.NNZ(), 6)

	// transforming back to Horizontal should restore original row grouping.
	p.Transform(encoding.Horizontal)
	row1 := p.IterateRow(1)
	require.Len(t, row1, 3)
}

func TestWindowCoversRequestedRows(t *testing.T) {
	rowptr, colind, values := smallCSR()
	p, err := FromCSR(0, 3, 4, rowptr, colind, values, 0)
	require.NoError(t, err)

	w := p.Window(2, 2)
	require.Equal(t, 2, w.StartRow)
	require.Equal(t, 3, w.NNZ())
}

func TestResetMarksClearsPatternFlags(t *testing.T) {
	rowptr, colind, values := smallCSR()
	p, err := FromCSR(0, 3, 4, rowptr, colind, values, 0)
	require.NoError(t, err)

	p.Elems[0].InPattern = true
	p.Elems[0].PatternStart = true
	p.ResetMarks()
	require.False(t, p.Elems[0].InPattern)
	require.False(t, p.Elems[0].PatternStart)
}
