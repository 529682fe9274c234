package reorder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/reorder"
)

// a 5-node path graph: 0-1-2-3-4, stored as a full symmetric CSR.
func pathGraph() (rowptr, colind []int) {
	adj := map[int][]int{
		0: {1},
		1: {0, 2},
		2: {1, 3},
		3: {2, 4},
		4: {3},
	}
	rowptr = make([]int, 6)
	for i := 0; i < 5; i++ {
		rowptr[i] = len(colind)
		colind = append(colind, adj[i]...)
	}
	rowptr[5] = len(colind)
	return
}

func TestComputeProducesValidPermutation(t *testing.T) {
	rowptr, colind := pathGraph()
	p, err := reorder.Compute(5, rowptr, colind)
	require.NoError(t, err)
	require.Len(t, p.Perm, 5)

	seen := make(map[int]bool)
	for _, old := range p.Perm {
		require.False(t, seen[old], "permutation must be a bijection")
		seen[old] = true
	}
	for old, newIdx := range p.Inverse {
		require.Equal(t, old, p.Perm[newIdx])
	}
}

func TestApplyPreservesRowEntryCounts(t *testing.T) {
	rowptr, colind := pathGraph()
	values := make([]float64, len(colind))
	for i := range values {
		values[i] = float64(i + 1)
	}

	p, err := reorder.Compute(5, rowptr, colind)
	require.NoError(t, err)

	newRowptr, newColind, newValues := reorder.Apply(p, rowptr, colind, values)
	require.Equal(t, len(colind), len(newColind))
	require.Equal(t, len(values), len(newValues))
	for r := 0; r < 5; r++ {
		require.Equal(t, rowptr[r+1]-rowptr[r], newRowptr[r+1]-newRowptr[r])
	}
}

func TestComputeHandlesEmptyMatrix(t *testing.T) {
	p, err := reorder.Compute(0, []int{0}, nil)
	require.NoError(t, err)
	require.Empty(t, p.Perm)
}
