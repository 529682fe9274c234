package kernel

import (
	"github.com/cslab-ntua/spx/internal/csx"
	"github.com/cslab-ntua/spx/internal/ctl"
	"github.com/cslab-ntua/spx/internal/encoding"
)

// walkUnits decodes every element of m's ctl stream once, invoking visit
// with its (1-based local row, 1-based global column, value). Used by the
// symmetric mirror pass, which needs per-element access rather than Run's
// fused multiply-accumulate.
func walkUnits(m *csx.Matrix, visit func(row, col int, v float64)) {
	r := ctl.NewReader(m.Ctl)
	row := 0
	col := 0
	valIdx := 0
	idxWidth := encoding.WidthFor(uint64(m.NCols))

	for !r.Done() {
		h := r.ReadUnitHeader()
		if h.NewRow {
			// same row advance as Run: rows fully covered by a block tile
			// are stepped over without being counted.
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
				visit(row, cols[i], m.Values[valIdx+i])
			}
			valIdx += h.Size
			col = cols[len(cols)-1]

		case inst.Type == encoding.Horizontal:
			c := first
			for i := 0; i < h.Size; i++ {
				visit(row, c, m.Values[valIdx+i])
				c += inst.Delta
			}
			valIdx += h.Size
			col = first + (h.Size-1)*inst.Delta

		case inst.Type.IsBlockRow():
			rSpan, cCount := shape(inst)
			for rr := 0; rr < rSpan; rr++ {
				for cc := 0; cc < cCount; cc++ {
					visit(row+rr, first+cc, m.Values[valIdx+rr*cCount+cc])
				}
			}
			valIdx += h.Size

		case inst.Type.IsBlockCol():
			rSpan, cCount := shape(inst)
			for cc := 0; cc < cCount; cc++ {
				for rr := 0; rr < rSpan; rr++ {
					visit(row+rr, first+cc, m.Values[valIdx+cc*rSpan+rr])
				}
			}
			valIdx += h.Size
		}
	}
}
