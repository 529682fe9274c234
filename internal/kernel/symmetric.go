package kernel

import "github.com/cslab-ntua/spx/internal/csx"

// RunSymmetric executes the lower-triangle sweep for a symmetric partition:
// every stored (row, col) contributes both y[row] += v*x[col]*scale (the
// normal direction) and the mirrored y[col] += v*x[row]*scale. The normal
// direction is added to y by Run, and the diagonal contribution
// d[row]*x[row]*scale by a loop right after it. Every mirrored product
// v*x[row] goes, unscaled, into the thread-local buffer (local) at the slot
// the reduction map (built by internal/csx.BuildReductionMap) assigned to
// its column, whichever thread owns that column — the caller is
// responsible for running Reduce, which applies scale, behind the pool's
// third barrier before reading y.
func (k *Kernel) RunSymmetric(sym *csx.Symmetric, x, y, local []float64, rowStart int, scale float64) {
	k.Run(x, y, scale)

	for i, d := range sym.Dvalues {
		y[i] += d * x[rowStart+i] * scale
	}

	for _, e := range sym.ReductionMap {
		local[e.LocalIndex] = 0
	}
	k.runMirror(sym, x, local, rowStart, scale)
}

// runMirror re-sweeps the ctl stream purely to accumulate the mirrored
// off-diagonal contribution v*x[row] into the per-entry local slots the
// reduction map assigned (Reduce applies scale when folding them into y).
// Reduction entries carry 0-based columns; walkUnits reports 1-based ones. A second sweep keeps Run itself free of
// symmetric-specific bookkeeping so the non-symmetric path pays no cost for
// a feature it doesn't use.
func (k *Kernel) runMirror(sym *csx.Symmetric, x, local []float64, rowStart int, scale float64) {
	idx := make(map[int]int, len(sym.ReductionMap))
	for i, e := range sym.ReductionMap {
		idx[e.Col] = i
	}
	if len(idx) == 0 {
		return
	}

	m := k.m
	walkUnits(m, func(globalRow, col int, v float64) {
		if li, ok := idx[col-1]; ok {
			local[sym.ReductionMap[li].LocalIndex] += v * x[rowStart+globalRow-1]
		}
	})
}
