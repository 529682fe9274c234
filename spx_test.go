package spx_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cslab-ntua/spx"
	"github.com/cslab-ntua/spx/internal/config"
)

func denseToCSR(dense [][]float64) (rowptr, colind []int, values []float64) {
	rowptr = make([]int, len(dense)+1)
	for i, row := range dense {
		rowptr[i] = len(colind)
		for c, v := range row {
			if v != 0 {
				colind = append(colind, c)
				values = append(values, v)
			}
		}
	}
	rowptr[len(dense)] = len(colind)
	return
}

func randomDense(rng *rand.Rand, n int, density float64) [][]float64 {
	d := make([][]float64, n)
	for r := range d {
		d[r] = make([]float64, n)
		for c := range d[r] {
			if rng.Float64() < density {
				d[r][c] = rng.Float64()*2 - 1
			}
		}
	}
	return d
}

func TestInputLoadCSRValidation(t *testing.T) {
	_, err := spx.InputLoadCSR([]int{0, 1}, []int{0}, []float64{1}, 2, 2, 0)
	require.Error(t, err)

	in, err := spx.InputLoadCSR([]int{0, 1, 2}, []int{0, 1}, []float64{1, 2}, 2, 2, 0)
	require.NoError(t, err)
	require.Equal(t, 2, in.NRows)
}

func TestMatTuneAndMatVecMultMatchesDense(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	dense := randomDense(rng, 20, 0.25)
	rowptr, colind, values := denseToCSR(dense)

	in, err := spx.InputLoadCSR(rowptr, colind, values, 20, 20, 0)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.NrThreads = 3
	A, err := spx.MatTune(in, cfg, false)
	require.NoError(t, err)
	defer A.Close()

	x := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		x.SetVec(i, rng.Float64()*2-1)
	}
	y := mat.NewVecDense(20, nil)
	require.NoError(t, A.MatVecMult(2, x, y))

	for r := 0; r < 20; r++ {
		want := 0.0
		for c := 0; c < 20; c++ {
			want += 2 * dense[r][c] * x.AtVec(c)
		}
		require.InDelta(t, want, y.AtVec(r), 1e-9, "row %d", r)
	}
}

func TestMatGetSetEntry(t *testing.T) {
	dense := [][]float64{
		{1, 0, 2},
		{0, 3, 0},
		{4, 0, 5},
	}
	rowptr, colind, values := denseToCSR(dense)
	in, err := spx.InputLoadCSR(rowptr, colind, values, 3, 3, 0)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.NrThreads = 2
	A, err := spx.MatTune(in, cfg, false)
	require.NoError(t, err)
	defer A.Close()

	v, err := A.MatGetEntry(0, 2, 0)
	require.NoError(t, err)
	require.Equal(t, 2.0, v)

	_, err = A.MatGetEntry(0, 1, 0)
	require.ErrorIs(t, err, spx.ErrEntryNotFound)

	require.NoError(t, A.MatSetEntry(0, 0, 0, 100))
	v, err = A.MatGetEntry(0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 100.0, v)
}

func TestMatSaveRestoreRoundTrip(t *testing.T) {
	dense := [][]float64{
		{1, 0, 2},
		{0, 3, 4},
		{5, 6, 0},
	}
	rowptr, colind, values := denseToCSR(dense)
	in, err := spx.InputLoadCSR(rowptr, colind, values, 3, 3, 0)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.NrThreads = 2
	A, err := spx.MatTune(in, cfg, false)
	require.NoError(t, err)
	defer A.Close()

	var buf bytes.Buffer
	require.NoError(t, A.MatSave(&buf))

	B, err := spx.MatRestore(&buf)
	require.NoError(t, err)
	defer B.Close()

	require.Equal(t, A.MatGetNRows(), B.MatGetNRows())
	require.Equal(t, A.MatGetNNZ(), B.MatGetNNZ())

	x := mat.NewVecDense(3, []float64{1, 2, 3})
	yA := mat.NewVecDense(3, nil)
	yB := mat.NewVecDense(3, nil)
	require.NoError(t, A.MatVecMult(1, x, yA))
	require.NoError(t, B.MatVecMult(1, x, yB))
	require.Equal(t, yA.RawVector().Data, yB.RawVector().Data)
}

func TestSymmetricMatVecMultMatchesDense(t *testing.T) {
	dense := [][]float64{
		{4, 1, 0},
		{1, 3, 2},
		{0, 2, 5},
	}
	rowptr, colind, values := denseToCSR(dense)
	in, err := spx.InputLoadCSR(rowptr, colind, values, 3, 3, 0)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Symmetric = true
	cfg.NrThreads = 1
	A, err := spx.MatTune(in, cfg, false)
	require.NoError(t, err)
	defer A.Close()

	x := mat.NewVecDense(3, []float64{1, 1, 1})
	y := mat.NewVecDense(3, nil)
	require.NoError(t, A.MatVecMult(1, x, y))

	for r := 0; r < 3; r++ {
		want := 0.0
		for c := 0; c < 3; c++ {
			want += dense[r][c] * x.AtVec(c)
		}
		require.InDelta(t, want, y.AtVec(r), 1e-9, "row %d", r)
	}
}

func TestPartitionCSRBalancesRows(t *testing.T) {
	rowptr := []int{0, 2, 4, 6, 8}
	bounds, err := spx.PartitionCSR(rowptr, 2)
	require.NoError(t, err)
	require.Equal(t, 0, bounds[0])
	require.Equal(t, 4, bounds[len(bounds)-1])
}

func TestOptionSetAndFromEnv(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, spx.OptionSet(&cfg, "spx.rt.nr_threads", "2"))
	require.Equal(t, 2, cfg.NrThreads)

	err := spx.OptionSet(&cfg, "spx.rt.nr_threads", "-1")
	require.ErrorIs(t, err, spx.ErrConfigInvalid)

	t.Setenv("SPX_RT_NR_THREADS", "5")
	require.NoError(t, spx.OptionsSetFromEnv(&cfg))
	require.Equal(t, 5, cfg.NrThreads)
}
