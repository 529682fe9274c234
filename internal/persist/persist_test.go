package persist_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/csx"
	"github.com/cslab-ntua/spx/internal/encoder"
	"github.com/cslab-ntua/spx/internal/partition"
	"github.com/cslab-ntua/spx/internal/persist"
)

func buildMatrix(t *testing.T) *csx.Matrix {
	t.Helper()
	rowptr := []int{0, 2, 3}
	colind := []int{0, 1, 1}
	values := []float64{1, 2, 3}
	p, err := partition.FromCSR(0, 2, 2, rowptr, colind, values, 0)
	require.NoError(t, err)
	encoder.Encode(p, encoder.DefaultConfig())
	return csx.Write(p, true)
}

func TestSaveRestoreRoundTripPlain(t *testing.T) {
	m := buildMatrix(t)
	f := &persist.File{
		Threads:  []persist.ThreadInfo{{CPU: 0, ID: 0, Node: 0, NNZ: int64(m.NNZ), CtlSize: int64(m.CtlSize)}},
		Matrices: []*csx.Matrix{m},
	}

	var buf bytes.Buffer
	require.NoError(t, persist.Save(&buf, f))

	got, err := persist.Restore(&buf)
	require.NoError(t, err)
	require.Len(t, got.Matrices, 1)
	require.Equal(t, m.NNZ, got.Matrices[0].NNZ)
	require.Equal(t, m.NRows, got.Matrices[0].NRows)
	require.Equal(t, m.Values, got.Matrices[0].Values)
	require.Equal(t, m.Ctl, got.Matrices[0].Ctl)
	require.Equal(t, m.RowsInfo, got.Matrices[0].RowsInfo)
}

func TestSaveRestoreRoundTripSymmetric(t *testing.T) {
	m1 := buildMatrix(t)
	m2 := buildMatrix(t)
	f := &persist.File{
		Symmetric: true,
		Threads: []persist.ThreadInfo{
			{CPU: 0, ID: 0, Node: 0},
			{CPU: 1, ID: 1, Node: 1},
		},
		Matrices: []*csx.Matrix{m1, m2},
		Dvalues:  []float64{1.5, 2.5, 3.5, 4.5},
		ReductionMap: [][]csx.ReductionEntry{
			{{DestThread: 1, Col: 2, LocalIndex: 0}},
			{{DestThread: 0, Col: 0, LocalIndex: 0}},
		},
		Reordered:   true,
		Permutation: []int{1, 0, 2, 3},
	}

	var buf bytes.Buffer
	require.NoError(t, persist.Save(&buf, f))

	got, err := persist.Restore(&buf)
	require.NoError(t, err)
	require.True(t, got.Symmetric)
	require.Equal(t, f.Dvalues, got.Dvalues)
	require.Equal(t, f.ReductionMap, got.ReductionMap)
	require.True(t, got.Reordered)
	require.Equal(t, f.Permutation, got.Permutation)
}
