package kernel_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/csx"
	"github.com/cslab-ntua/spx/internal/encoder"
	"github.com/cslab-ntua/spx/internal/kernel"
	"github.com/cslab-ntua/spx/internal/partition"
)

func randomCSR(rng *rand.Rand, nrows, ncols int, density float64) (rowptr, colind []int, values []float64, dense [][]float64) {
	dense = make([][]float64, nrows)
	rowptr = make([]int, nrows+1)
	for r := 0; r < nrows; r++ {
		dense[r] = make([]float64, ncols)
		rowptr[r] = len(colind)
		for c := 0; c < ncols; c++ {
			if rng.Float64() < density {
				v := rng.Float64()*2 - 1
				dense[r][c] = v
				colind = append(colind, c)
				values = append(values, v)
			}
		}
	}
	rowptr[nrows] = len(colind)
	return
}

func TestRunMatchesDenseMultiply(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	nrows, ncols := 30, 25
	rowptr, colind, values, dense := randomCSR(rng, nrows, ncols, 0.2)

	p, err := partition.FromCSR(0, nrows, ncols, rowptr, colind, values, 0)
	require.NoError(t, err)
	encoder.Encode(p, encoder.DefaultConfig())
	m := csx.Write(p, true)

	k, err := kernel.Build(m)
	require.NoError(t, err)

	x := make([]float64, ncols)
	for i := range x {
		x[i] = rng.Float64()*2 - 1
	}
	y := make([]float64, nrows)
	k.Run(x, y, 1.5)

	for r := 0; r < nrows; r++ {
		want := 0.0
		for c := 0; c < ncols; c++ {
			want += 1.5 * dense[r][c] * x[c]
		}
		require.InDelta(t, want, y[r], 1e-9, "row %d", r)
	}
}

func TestRunAccumulatesOntoExistingY(t *testing.T) {
	rowptr := []int{0, 1}
	colind := []int{0}
	values := []float64{2}
	p, err := partition.FromCSR(0, 1, 1, rowptr, colind, values, 0)
	require.NoError(t, err)
	encoder.Encode(p, encoder.DefaultConfig())
	m := csx.Write(p, true)
	k, err := kernel.Build(m)
	require.NoError(t, err)

	y := []float64{10}
	k.Run([]float64{3}, y, 1)
	require.Equal(t, 16.0, y[0]) // 10 + 2*3
}
