package mmf_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/mmf"
)

const sample = `%%MatrixMarket matrix coordinate real general
% a comment line
3 3 4
1 1 5.0
2 2 6.0
3 1 7.0
1 3 8.0
`

func TestLoadMMFParsesCoordinates(t *testing.T) {
	coo, err := mmf.LoadMMF(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 3, coo.NRows)
	require.Equal(t, 3, coo.NCols)
	require.Len(t, coo.Rows, 4)
	require.False(t, coo.Symmetric)
}

const symmetricSample = `%%MatrixMarket matrix coordinate real symmetric
2 2 2
1 1 1.0
2 1 2.0
`

func TestLoadMMFDetectsSymmetricBanner(t *testing.T) {
	coo, err := mmf.LoadMMF(strings.NewReader(symmetricSample))
	require.NoError(t, err)
	require.True(t, coo.Symmetric)
}

func TestExpandSymmetricMirrorsOffDiagonal(t *testing.T) {
	coo, err := mmf.LoadMMF(strings.NewReader(symmetricSample))
	require.NoError(t, err)
	full := mmf.ExpandSymmetric(coo)
	require.Len(t, full.Rows, 3) // (1,1), (2,1), mirrored (1,2)
}

func TestToCSRSortsColumnsWithinRow(t *testing.T) {
	coo, err := mmf.LoadMMF(strings.NewReader(sample))
	require.NoError(t, err)
	rowptr, colind, values := mmf.ToCSR(coo)

	require.Equal(t, []int{0, 2, 3, 4}, rowptr)
	require.Equal(t, []int{0, 2}, colind[0:2]) // row 0: cols 0 and 2, sorted
	require.Equal(t, []float64{5.0, 8.0}, values[0:2])
}

func TestLoadMMFRejectsMalformedSizeLine(t *testing.T) {
	_, err := mmf.LoadMMF(strings.NewReader("%%MatrixMarket matrix coordinate real general\nbad line\n"))
	require.Error(t, err)
}

func TestLoadCSRRoundTrip(t *testing.T) {
	const text = "2 2 2\n0 2 4\n1 5.0\n0 6.0\n"
	rowptr, colind, values, nrows, ncols, err := mmf.LoadCSR(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, 2, nrows)
	require.Equal(t, 2, ncols)
	require.Equal(t, []int{0, 2, 4}, rowptr)
	require.Equal(t, []int{1, 0}, colind)
	require.Equal(t, []float64{5.0, 6.0}, values)
}
