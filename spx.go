// Package spx is the public API of the CSX SpMV acceleration engine:
// loading a matrix (input.go), tuning it into a tiled, pattern-encoded
// per-thread representation, running alpha*A*x(+beta*y) across a worker
// pool, and persisting the tuned form to disk. It is the thin assembly
// layer over internal/{partition,stats,encoder,csx,kernel,runtime,reorder,
// persist,config,mmf,vecops} -- those packages hold the actual algorithms.
package spx

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/cslab-ntua/spx/internal/config"
	"github.com/cslab-ntua/spx/internal/csx"
	"github.com/cslab-ntua/spx/internal/encoder"
	"github.com/cslab-ntua/spx/internal/errtypes"
	"github.com/cslab-ntua/spx/internal/kernel"
	"github.com/cslab-ntua/spx/internal/partition"
	"github.com/cslab-ntua/spx/internal/persist"
	"github.com/cslab-ntua/spx/internal/reorder"
	"github.com/cslab-ntua/spx/internal/runtime"
)

// thread is one worker's tuned slice of the matrix plus its execution
// handle and placement.
type thread struct {
	plain *csx.Matrix
	sym   *csx.Symmetric
	kern  *kernel.Kernel

	rowRange runtime.RowRange
	cpu      int
	node     int
}

// Matrix is the opaque handle returned by mat_tune: a matrix already
// partitioned across threads, pattern-encoded and bound to a worker pool,
// ready for repeated matvec_mult/matvec_kernel calls.
type Matrix struct {
	cfg config.RuntimeConfiguration

	nrows, ncols, nnz int
	symmetric         bool

	threads []*thread
	pool    *runtime.Pool

	reordered bool
	perm      *reorder.Permutation
}

// MatTune builds a tuned Matrix from input, matching mat_tune(input,
// config, reorder). reorder requests the bandwidth-reducing permutation of
// OP_REORDER before partitioning; it requires a square matrix.
func MatTune(input *Input, cfg config.RuntimeConfiguration, doReorder bool) (*Matrix, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: mat_tune: nil input", ErrArgInvalid)
	}
	rowptr, colind, values := input.RowPtr, input.ColInd, input.Values
	nrows, ncols := input.NRows, input.NCols

	var perm *reorder.Permutation
	if doReorder {
		if nrows != ncols {
			return nil, fmt.Errorf("%w: mat_tune: reorder requires a square matrix", ErrArgInvalid)
		}
		var err error
		perm, err = reorder.Compute(nrows, rowptr, colind)
		if err != nil {
			return nil, fmt.Errorf("%w: mat_tune: %v", errtypes.ErrEncodingFailure, err)
		}
		rowptr, colind, values = reorder.Apply(perm, rowptr, colind, values)
	}

	symmetric := cfg.Symmetric || input.Symmetric
	var diag []float64
	if symmetric {
		if nrows != ncols {
			return nil, fmt.Errorf("%w: mat_tune: symmetric storage requires a square matrix", ErrArgInvalid)
		}
		diag = make([]float64, nrows)
		rowptr, colind, values = stripUpperAndDiagonal(rowptr, colind, values, diag)
	}

	nrThreads := cfg.NrThreads
	if nrThreads <= 0 {
		nrThreads = 1
	}
	ranges, err := runtime.PartitionCSR(rowptr, nrThreads)
	if err != nil {
		return nil, fmt.Errorf("%w: mat_tune: %v", ErrArgInvalid, err)
	}
	nrThreads = len(ranges)

	starts := make([]int, nrThreads)
	ends := make([]int, nrThreads)
	for i, r := range ranges {
		starts[i] = r.Start
		ends[i] = r.End
	}

	encCfg := encodingConfigFrom(cfg)

	threads := make([]*thread, nrThreads)
	threadCols := make([][]int, nrThreads)
	nnz := 0
	for i, r := range ranges {
		p, err := partition.FromCSR(r.Start, r.End-r.Start, ncols, rowptr, colind, values, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: mat_tune: %v", errtypes.ErrEncodingFailure, err)
		}
		encoder.Encode(p, encCfg)
		m := csx.Write(p, cfg.FullColind)
		nnz += m.NNZ

		k, err := kernel.Build(m)
		if err != nil {
			return nil, fmt.Errorf("%w: mat_tune: %v", errtypes.ErrJitFailure, err)
		}

		cpu := i
		if i < len(cfg.CPUAffinity) {
			cpu = cfg.CPUAffinity[i]
		}
		node := runtime.NodeOfCPU(cpu)
		m.Ctl = bindBytes(m.Ctl, node)

		threads[i] = &thread{plain: m, kern: k, rowRange: r, cpu: cpu, node: node}

		if symmetric {
			cols := make([]int, 0, len(p.Elems))
			for _, e := range p.Elems {
				cols = append(cols, e.Col-1)
			}
			threadCols[i] = cols
		}
	}

	if symmetric {
		for i, t := range threads {
			entries, localSize := csx.BuildReductionMap(threadCols[i], starts, ends)
			t.sym = &csx.Symmetric{
				Matrix:       t.plain,
				Dvalues:      diag[t.rowRange.Start:t.rowRange.End],
				ReductionMap: entries,
			}
			_ = localSize
		}
	}

	return &Matrix{
		cfg:       cfg,
		nrows:     nrows,
		ncols:     ncols,
		nnz:       nnz,
		symmetric: symmetric,
		threads:   threads,
		pool:      runtime.NewPool(nrThreads),
		reordered: doReorder,
		perm:      perm,
	}, nil
}

// bindBytes copies buf into a NUMA-bound allocation on node, exercising
// internal/runtime's mbind wrapper for the ctl stream each thread mostly
// reads during SpMV: ctl for a thread is bound to that thread's own node.
func bindBytes(buf []byte, node int) []byte {
	out := runtime.BindNode(len(buf), node)
	copy(out, buf)
	return out
}

// stripUpperAndDiagonal filters a CSR triple down to its strict lower
// triangle, recording every diagonal value into diag (indexed by global
// row) and dropping any upper-triangle entries a caller-supplied full
// matrix might still carry.
func stripUpperAndDiagonal(rowptr, colind []int, values []float64, diag []float64) (newRowptr, newColind []int, newValues []float64) {
	nrows := len(rowptr) - 1
	newRowptr = make([]int, nrows+1)
	newColind = make([]int, 0, len(colind))
	newValues = make([]float64, 0, len(values))
	for row := 0; row < nrows; row++ {
		newRowptr[row] = len(newColind)
		for k := rowptr[row]; k < rowptr[row+1]; k++ {
			col := colind[k]
			switch {
			case col == row:
				diag[row] = values[k]
			case col < row:
				newColind = append(newColind, col)
				newValues = append(newValues, values[k])
			}
		}
	}
	newRowptr[nrows] = len(newColind)
	return newRowptr, newColind, newValues
}

// encodingConfigFrom maps the mnemonic RuntimeConfiguration onto the
// encoder package's internal Config, translating the string-keyed
// option_set surface into the typed knobs internal/encoder expects.
func encodingConfigFrom(cfg config.RuntimeConfiguration) encoder.Config {
	ec := encoder.Config{
		Types:        cfg.Xform,
		MinUnitSize:  cfg.MinUnitSize,
		MaxUnitSize:  cfg.MaxUnitSize,
		MinCoverage:  cfg.MinCoverage,
		SplitBlocks:  cfg.SplitBlocks,
		OneDimBlocks: cfg.OneDimBlocks,
	}
	if cfg.Heuristic == config.HeuristicCover {
		ec.Heuristic = encoder.Cover
	} else {
		ec.Heuristic = encoder.Cost
	}
	if ec.MinUnitSize == 0 {
		ec.MinUnitSize = 2
	}
	if ec.MaxUnitSize == 0 {
		ec.MaxUnitSize = 255
	}

	switch cfg.Sampling {
	case config.SamplingWindow:
		n := cfg.WindowSize
		if n == 0 {
			n = cfg.SamplingSamples
		}
		ec.Sampling = encoder.SamplingConfig{Policy: encoder.WindowSampling, NSamples: n}
	case config.SamplingPortion:
		nw := cfg.SamplingSamples
		if nw == 0 {
			nw = 1
		}
		ec.Sampling = encoder.SamplingConfig{Policy: encoder.PortionSampling, NWindows: nw, Portion: cfg.SamplingPortion}
	default:
		ec.Sampling = encoder.SamplingConfig{Policy: encoder.NoSampling}
	}
	return ec
}

// MatGetNRows, MatGetNCols, MatGetNNZ report A's global dimensions and
// stored non-zero count, matching mat_get_nrows/mat_get_ncols/mat_get_nnz.
func (A *Matrix) MatGetNRows() int { return A.nrows }
func (A *Matrix) MatGetNCols() int { return A.ncols }
func (A *Matrix) MatGetNNZ() int   { return A.nnz }

// MatGetPerm returns the forward permutation applied by mat_tune's reorder
// option (new index -> original index), or nil if A was tuned without
// reordering, matching mat_get_perm.
func (A *Matrix) MatGetPerm() []int {
	if A.perm == nil {
		return nil
	}
	return A.perm.Perm
}

// MatGetPartition returns the row boundaries PartitionCSR assigned, as
// nrThreads+1 increasing row indices, matching mat_get_partition.
func (A *Matrix) MatGetPartition() []int {
	out := make([]int, 0, len(A.threads)+1)
	out = append(out, A.threads[0].rowRange.Start)
	for _, t := range A.threads {
		out = append(out, t.rowRange.End)
	}
	return out
}

func (A *Matrix) threadFor(globalRow int) (*thread, int) {
	for _, t := range A.threads {
		if globalRow >= t.rowRange.Start && globalRow < t.rowRange.End {
			return t, globalRow - t.rowRange.Start
		}
	}
	return nil, 0
}

// MatGetEntry implements mat_get_entry: row/col are global, 0- or 1-based
// per indexing. For symmetric matrices an upper-triangle request is
// resolved against the stored lower triangle transparently.
func (A *Matrix) MatGetEntry(row, col, indexing int) (float64, error) {
	r, c := row-indexing, col-indexing
	if r < 0 || r >= A.nrows || c < 0 || c >= A.ncols {
		return 0, fmt.Errorf("%w: mat_get_entry: (%d,%d) out of range", ErrArgInvalid, row, col)
	}
	if A.symmetric && c > r {
		r, c = c, r
	}
	if A.symmetric && r == c {
		t, local := A.threadFor(r)
		if t == nil {
			return 0, fmt.Errorf("%w: mat_get_entry: row %d not owned by any thread", ErrEntryNotFound, row)
		}
		return t.sym.Dvalues[local], nil
	}
	t, local := A.threadFor(r)
	if t == nil {
		return 0, fmt.Errorf("%w: mat_get_entry: row %d not owned by any thread", ErrEntryNotFound, row)
	}
	v, ok := t.plain.Get(local+1, c+1)
	if !ok {
		return 0, fmt.Errorf("%w: mat_get_entry: (%d,%d) is a structural zero", ErrEntryNotFound, row, col)
	}
	return v, nil
}

// MatSetEntry implements mat_set_entry, with the same symmetric mirroring
// MatGetEntry applies.
func (A *Matrix) MatSetEntry(row, col, indexing int, v float64) error {
	r, c := row-indexing, col-indexing
	if r < 0 || r >= A.nrows || c < 0 || c >= A.ncols {
		return fmt.Errorf("%w: mat_set_entry: (%d,%d) out of range", ErrArgInvalid, row, col)
	}
	if A.symmetric && c > r {
		r, c = c, r
	}
	if A.symmetric && r == c {
		t, local := A.threadFor(r)
		if t == nil {
			return fmt.Errorf("%w: mat_set_entry: row %d not owned by any thread", ErrEntryNotFound, row)
		}
		t.sym.Dvalues[local] = v
		return nil
	}
	t, local := A.threadFor(r)
	if t == nil {
		return fmt.Errorf("%w: mat_set_entry: row %d not owned by any thread", ErrEntryNotFound, row)
	}
	if !t.plain.Set(local+1, c+1, v) {
		return fmt.Errorf("%w: mat_set_entry: (%d,%d) is a structural zero", ErrEntryNotFound, row, col)
	}
	return nil
}

// MatVecMult computes y = alpha*A*x, matching matvec_mult. y is zeroed
// before accumulation.
func (A *Matrix) MatVecMult(alpha float64, x, y *mat.VecDense) error {
	return A.spmv(alpha, x, 0, y)
}

// MatVecKernel computes y = alpha*A*x + beta*y, matching matvec_kernel.
func (A *Matrix) MatVecKernel(alpha float64, x *mat.VecDense, beta float64, y *mat.VecDense) error {
	return A.spmv(alpha, x, beta, y)
}

func (A *Matrix) spmv(alpha float64, x *mat.VecDense, beta float64, y *mat.VecDense) error {
	if x.Len() != A.ncols || y.Len() != A.nrows {
		return fmt.Errorf("%w: matvec: dimension mismatch", ErrArgInvalid)
	}
	xs := x.RawVector().Data
	ys := y.RawVector().Data

	for i := range ys {
		ys[i] *= beta
	}

	if !A.symmetric {
		A.pool.Dispatch(func(id int) {
			t := A.threads[id]
			slice := ys[t.rowRange.Start:t.rowRange.End]
			t.kern.Run(xs, slice, alpha)
		})
		return nil
	}

	locals := make([][]float64, len(A.threads))
	for i, t := range A.threads {
		locals[i] = make([]float64, len(t.sym.ReductionMap))
	}
	A.pool.Dispatch(func(id int) {
		t := A.threads[id]
		slice := ys[t.rowRange.Start:t.rowRange.End]
		t.kern.RunSymmetric(t.sym, xs, slice, locals[id], t.rowRange.Start, alpha)
	})

	maps := make([][]csx.ReductionEntry, len(A.threads))
	for i, t := range A.threads {
		maps[i] = t.sym.ReductionMap
	}
	A.pool.Dispatch(func(id int) {
		csx.Reduce(ys, id, locals, maps, alpha)
	})
	return nil
}

// Close releases A's worker pool, matching the reference's matrix
// destructor freeing its thread team.
func (A *Matrix) Close() {
	A.pool.Close()
}

// MatSave writes A's tuned state to w, matching mat_save.
func (A *Matrix) MatSave(w io.Writer) error {
	f := &persist.File{Symmetric: A.symmetric, Reordered: A.reordered}
	f.Threads = make([]persist.ThreadInfo, len(A.threads))
	f.Matrices = make([]*csx.Matrix, len(A.threads))
	for i, t := range A.threads {
		f.Threads[i] = persist.ThreadInfo{
			CPU: uint32(t.cpu), ID: uint32(i), Node: int32(t.node),
			NNZ: int64(t.plain.NNZ), CtlSize: int64(t.plain.CtlSize),
		}
		f.Matrices[i] = t.plain
	}
	if A.symmetric {
		f.Dvalues = make([]float64, A.nrows)
		f.ReductionMap = make([][]csx.ReductionEntry, len(A.threads))
		for _, t := range A.threads {
			copy(f.Dvalues[t.rowRange.Start:t.rowRange.End], t.sym.Dvalues)
		}
		for i, t := range A.threads {
			f.ReductionMap[i] = t.sym.ReductionMap
		}
	}
	if A.reordered {
		f.Permutation = A.perm.Perm
	}
	return persist.Save(w, f)
}

// MatRestore reads back a Matrix saved by MatSave, rebinding kernels and a
// fresh worker pool, matching mat_restore.
func MatRestore(r io.Reader) (*Matrix, error) {
	f, err := persist.Restore(r)
	if err != nil {
		return nil, err
	}

	threads := make([]*thread, len(f.Matrices))
	nrows, ncols, nnz := 0, 0, 0
	for i, m := range f.Matrices {
		k, err := kernel.Build(m)
		if err != nil {
			return nil, fmt.Errorf("%w: mat_restore: %v", errtypes.ErrJitFailure, err)
		}
		rr := runtime.RowRange{Start: m.RowStart, End: m.RowStart + m.NRows, Node: int(f.Threads[i].Node)}
		threads[i] = &thread{plain: m, kern: k, rowRange: rr, cpu: int(f.Threads[i].CPU), node: int(f.Threads[i].Node)}
		if m.NCols > ncols {
			ncols = m.NCols
		}
		nrows = rr.End
		nnz += m.NNZ
	}

	if f.Symmetric {
		for i, t := range threads {
			t.sym = &csx.Symmetric{
				Matrix:       t.plain,
				Dvalues:      f.Dvalues[t.rowRange.Start:t.rowRange.End],
				ReductionMap: f.ReductionMap[i],
			}
		}
	}

	A := &Matrix{
		nrows: nrows, ncols: ncols, nnz: nnz,
		symmetric: f.Symmetric,
		threads:   threads,
		pool:      runtime.NewPool(len(threads)),
		reordered: f.Reordered,
	}
	if f.Reordered {
		inv := make([]int, len(f.Permutation))
		for newIdx, oldIdx := range f.Permutation {
			inv[oldIdx] = newIdx
		}
		A.perm = &reorder.Permutation{Perm: f.Permutation, Inverse: inv}
	}
	return A, nil
}

// PartitionCSR exposes the row-balancing partitioner directly, matching
// partition_csr(rowptr, nrows, nr_threads) for callers that want to inspect
// the split before committing to mat_tune.
func PartitionCSR(rowptr []int, nrThreads int) ([]int, error) {
	ranges, err := runtime.PartitionCSR(rowptr, nrThreads)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(ranges)+1)
	out = append(out, ranges[0].Start)
	for _, r := range ranges {
		out = append(out, r.End)
	}
	return out, nil
}

// OptionSet implements option_set(key, value) against a RuntimeConfiguration.
func OptionSet(cfg *config.RuntimeConfiguration, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}

// OptionsSetFromEnv implements options_set_from_env.
func OptionsSetFromEnv(cfg *config.RuntimeConfiguration) error {
	if err := cfg.SetFromEnv(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}
