package csx

import (
	"github.com/cslab-ntua/spx/internal/ctl"
	"github.com/cslab-ntua/spx/internal/encoding"
)

// maxPossibleSpan bounds how far back Get/Set need to search: no tile
// anchored more than this many rows above a target row can reach it. That
// is 8 for BlockRow tiles (BlockRow8), or the largest Span recorded in
// RowsInfo when a taller BlockCol_c tile (as tall as its delta) is present.
func maxPossibleSpan(m *Matrix) int {
	span := 8
	for _, ri := range m.RowsInfo {
		if ri.Span > span {
			span = ri.Span
		}
	}
	return span
}

// Get implements mat_get_entry for one thread's Matrix. It
// returns (value, true) on a structural hit, or (0, false) if (row, col) is
// a structural zero. row/col are 1-based local (partition-relative)
// indices. On a miss no state is modified.
func (m *Matrix) Get(row, col int) (float64, bool) {
	idx, ok := m.locate(row, col)
	if !ok {
		return 0, false
	}
	return m.Values[idx], true
}

// Set implements mat_set_entry: writes v into the structural slot (row,
// col), returning false (EntryNotFound) if no such slot exists, in which
// case no state is modified.
func (m *Matrix) Set(row, col int, v float64) bool {
	idx, ok := m.locate(row, col)
	if !ok {
		return false
	}
	m.Values[idx] = v
	return true
}

// locate walks rows in reverse from `row` down to row-maxSpan (a bounded
// reverse search), and within each candidate row decodes ctl
// forward, reconstructing absolute columns per unit type and testing
// whether (row, col) falls within the unit's footprint. It returns the
// values[] index on a hit.
func (m *Matrix) locate(row, col int) (int, bool) {
	if row < 1 || row > m.NRows || col < 1 || col > m.NCols {
		return 0, false
	}
	lo := row - maxPossibleSpan(m)
	if lo < 1 {
		lo = 1
	}
	tried := make(map[int]bool, maxPossibleSpan(m)+1)
	for r := row; r >= lo; r-- {
		info := m.RowsInfo[r-1]
		anchor := info.AnchorRow
		if tried[anchor] {
			continue
		}
		tried[anchor] = true
		anchorInfo := m.RowsInfo[anchor-1]
		if anchor != row && anchorInfo.Span < row-anchor {
			continue
		}
		if idx, ok := locateInRow(m, anchor, row, col); ok {
			return idx, true
		}
	}
	return 0, false
}

// locateInRow decodes every unit belonging to partition row startRow
// (identified by its RowsInfo ctl offset, stopping at the next NR) and
// checks each for a footprint containing (targetRow, targetCol).
func locateInRow(m *Matrix, startRow, targetRow, targetCol int) (int, bool) {
	info := m.RowsInfo[startRow-1]
	if info.CtlStart >= len(m.Ctl) {
		return 0, false
	}
	r := ctl.NewReader(m.Ctl)
	r.Seek(info.CtlStart)
	col := 0
	valIdx := info.ValStart
	idxWidth := widthForCount(m.NCols)
	seenFirst := false

	for !r.Done() {
		h := r.ReadUnitHeader()
		if h.NewRow && seenFirst {
			break
		}
		seenFirst = true

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
			for k := 1; k < h.Size; k++ {
				cols[k] = cols[k-1] + int(r.ReadVarint())
			}
			if targetRow == startRow {
				for k, c := range cols {
					if c == targetCol {
						return valIdx + k, true
					}
				}
			}
			valIdx += h.Size
			col = cols[len(cols)-1]

		case inst.Type == encoding.Horizontal:
			if targetRow == startRow && inst.Delta != 0 {
				d := targetCol - first
				if d%inst.Delta == 0 {
					k := d / inst.Delta
					if k >= 0 && k < h.Size {
						return valIdx + k, true
					}
				}
			}
			col = first + (h.Size-1)*inst.Delta
			valIdx += h.Size

		case inst.Type.IsBlockRow(), inst.Type.IsBlockCol():
			rowSpan, colCount := blockShape(inst.Type, inst.Delta)
			dr := targetRow - startRow
			dc := targetCol - first
			if dr >= 0 && dr < rowSpan && dc >= 0 && dc < colCount {
				if inst.Type.IsBlockRow() {
					return valIdx + dr*colCount + dc, true
				}
				return valIdx + dc*rowSpan + dr, true
			}
			valIdx += h.Size
		}
	}
	return 0, false
}
