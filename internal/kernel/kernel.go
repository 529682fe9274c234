// Package kernel implements the SpMV execution side of CSX: a single sweep
// of the ctl stream that dispatches on each unit's pattern id to an inlined
// case. This is a deliberate alternative to an
// emit-C-and-compile JIT ("a table-driven interpreter of ctl with an
// inlined switch on pattern id at the cost of ~20% throughput"); this
// rewrite takes that path because no C compiler or cgo toolchain is
// available to verify a code-emitting JIT in this build environment, and
// because a pure-Go switch keeps the kernel portable across the NUMA
// allocation strategy in internal/runtime without a second language
// boundary.
package kernel

import (
	"github.com/cslab-ntua/spx/internal/csx"
	"github.com/cslab-ntua/spx/internal/ctl"
	"github.com/cslab-ntua/spx/internal/encoding"
)

// Kernel is a specialized SpMV routine bound to one thread's Matrix. Build
// resolves the id_map once; Run re-executes the sweep on every call, so
// repeated matvec_mult/matvec_kernel invocations pay no further setup cost
// (matching the "one JIT compile, many executions" shape of the reference).
type Kernel struct {
	m *csx.Matrix
}

// Build materializes a Kernel for m. There is no actual code generation
// step in the interpreter strategy; Build exists so callers have a stable
// construction point symmetric with a future code-emitting backend.
func Build(m *csx.Matrix) (*Kernel, error) {
	for _, inst := range m.IDMap {
		if inst.Type.IsGroup() {
			return nil, ErrBadIDMap
		}
	}
	return &Kernel{m: m}, nil
}

// ErrBadIDMap is returned by Build if a Matrix's id_map contains a group
// tag, which would indicate a programming fault upstream (id_map must only
// ever contain concrete instantiations).
var ErrBadIDMap = csxIDMapError{}

type csxIDMapError struct{}

func (csxIDMapError) Error() string { return "kernel: id_map contains a non-concrete type" }

// Run computes y[0:m.NRows] += scale * A * x, where x is indexed by global
// 1-based column (x[col-1]) and y is this thread's local row-range slice
// (y[0] corresponds to partition-local row 1). It does not zero y first,
// matching matvec_kernel's y ← α·A·x + β·y contract: callers scale y by β
// themselves before invoking Run with scale=α.
func (k *Kernel) Run(x, y []float64, scale float64) {
	m := k.m
	r := ctl.NewReader(m.Ctl)
	row := 0
	col := 0
	valIdx := 0
	idxWidth := encoding.WidthFor(uint64(m.NCols))

	for !r.Done() {
		h := r.ReadUnitHeader()
		if h.NewRow {
			// rows a block tile fully covers open no unit of their own and
			// are not counted in RowsJumped; their RowsInfo points back to
			// the tile's anchor, so they are stepped over here.
			steps := 1
			if h.RowJump {
				steps = h.RowsJumped + 1
			}
			for steps > 0 {
				row++
				if m.RowsInfo[row-1].AnchorRow == row {
					steps--
				}
			}
			col = 0
		}

		var first int
		if m.FullColind {
			first = int(r.ReadFixed(idxWidth))
		} else {
			base := col
			if base == 0 {
				base = 1
			}
			first = base + int(r.ReadVarint())
		}
		col = first

		inst := m.IDMap[h.PatternID]
		switch {
		case inst.Type == encoding.None:
			cols := make([]int, h.Size)
			cols[0] = first
			for i := 1; i < h.Size; i++ {
				cols[i] = cols[i-1] + int(r.ReadVarint())
			}
			for i := 0; i < h.Size; i++ {
				y[row-1] += scale * m.Values[valIdx+i] * x[cols[i]-1]
			}
			valIdx += h.Size
			col = cols[len(cols)-1]

		case inst.Type == encoding.Horizontal:
			c := first
			for i := 0; i < h.Size; i++ {
				y[row-1] += scale * m.Values[valIdx+i] * x[c-1]
				c += inst.Delta
			}
			valIdx += h.Size
			col = first + (h.Size-1)*inst.Delta

		case inst.Type.IsBlockRow():
			rSpan, cCount := shape(inst)
			for rr := 0; rr < rSpan; rr++ {
				for cc := 0; cc < cCount; cc++ {
					y[row-1+rr] += scale * m.Values[valIdx+rr*cCount+cc] * x[first+cc-1]
				}
			}
			valIdx += h.Size

		case inst.Type.IsBlockCol():
			rSpan, cCount := shape(inst)
			for cc := 0; cc < cCount; cc++ {
				for rr := 0; rr < rSpan; rr++ {
					y[row-1+rr] += scale * m.Values[valIdx+cc*rSpan+rr] * x[first+cc-1]
				}
			}
			valIdx += h.Size
		}
	}
}

func shape(inst encoding.Instantiation) (rowSpan, colCount int) {
	align := inst.Type.BlockAlignment()
	if inst.Type.IsBlockRow() {
		return align, inst.Delta
	}
	return inst.Delta, align
}
