// Package partition implements the per-thread mutable element-list form of a
// matrix slice. A Partition owns a contiguous
// arena of Elements addressed by row pointer; the encoding pipeline mutates
// it in place by changing the iteration order (Transform) and by marking
// runs of elements as pattern instances.
package partition

import (
	"fmt"
	"sort"

	"github.com/cslab-ntua/spx/internal/encoding"
)

// Element is a single non-zero of the owning Partition. Row is the 1-based
// row within the partition (local row); Col is the 1-based column within
// the *global* matrix. Pattern membership is
// tracked with marker fields rather than a type hierarchy:
// InPattern is true for every element absorbed into a multi-element run;
// PatternStart is true only for the first element of that run, which also
// carries the winning Inst and the run length.
type Element struct {
	Row, Col int
	Val      float64

	InPattern    bool
	PatternStart bool
	Inst         encoding.Instantiation // valid iff PatternStart
	RunLen       int                    // valid iff PatternStart; 1 for singletons
}

// Partition is one worker's contiguous slice of the global matrix.
type Partition struct {
	RowStart int // 0-based global row offset of row 0 of this partition
	NRows    int
	NCols    int // global column count
	Type     encoding.Type

	RowPtr []int // len NRows+1, indices into Elems
	Elems  []Element
}

// FromCSR builds a Partition from a CSR-ordered row range [rowStart, rowStart+nrows)
// of a matrix with the given global column count. rowptr/colind/values are
// the standard CSR triple over the *whole* matrix; indexing is 0 or 1
// depending on whether colind is 0- or 1-based on input (the input_load_csr
// indexing option). Col values stored on Element are always normalised to
// 1-based.
func FromCSR(rowStart, nrows, ncols int, rowptr []int, colind []int, values []float64, indexing int) (*Partition, error) {
	if rowStart < 0 || nrows < 0 || ncols < 0 {
		return nil, fmt.Errorf("partition: invalid dimensions")
	}
	if len(rowptr) < rowStart+nrows+1 {
		return nil, fmt.Errorf("partition: rowptr too short for requested range")
	}

	base := rowptr[rowStart]
	last := rowptr[rowStart+nrows]
	nnz := last - base

	p := &Partition{
		RowStart: rowStart,
		NRows:    nrows,
		NCols:    ncols,
		Type:     encoding.Horizontal,
		RowPtr:   make([]int, nrows+1),
		Elems:    make([]Element, 0, nnz),
	}

	off := 1 - indexing // amount to add to stored (0- or 1-based) colind to get 1-based
	for i := 0; i < nrows; i++ {
		p.RowPtr[i] = len(p.Elems)
		rs, re := rowptr[rowStart+i], rowptr[rowStart+i+1]
		if re < rs {
			return nil, fmt.Errorf("partition: rowptr not monotonic at row %d", rowStart+i)
		}
		for k := rs; k < re; k++ {
			p.Elems = append(p.Elems, Element{
				Row: i + 1,
				Col: colind[k] + off,
				Val: values[k],
			})
		}
	}
	p.RowPtr[nrows] = len(p.Elems)
	return p, nil
}

// NNZ returns the number of stored non-zeros (pattern elements count once
// per original non-zero, not once per run).
func (p *Partition) NNZ() int { return len(p.Elems) }

// IterateRow returns the slice of Elements belonging to local row i (1-based
// row numbering, 1..NRows), backed by the partition's storage.
func (p *Partition) IterateRow(i int) []Element {
	return p.Elems[p.RowPtr[i-1]:p.RowPtr[i]]
}

// ResetMarks clears InPattern/PatternStart bookkeeping on every element,
// used when starting a fresh statistics pass in a new Type.
func (p *Partition) ResetMarks() {
	for i := range p.Elems {
		p.Elems[i].InPattern = false
		p.Elems[i].PatternStart = false
	}
}

// mapCoord applies the Type's bijection used to bring the elements of a
// pattern run into contiguous, ascending order. It returns the
// two-level sort key (primary "row", secondary "col") under the given type.
func mapCoord(t encoding.Type, row, col int) (int, int) {
	switch {
	case t == encoding.Horizontal:
		return row, col
	case t == encoding.Vertical:
		return col, row
	case t == encoding.Diagonal:
		// elements on the same diagonal share col-row; the key may be
		// negative, and Transform numbers rows from the smallest key.
		return col - row, row
	case t == encoding.AntiDiagonal:
		return row + col, row
	case t.IsBlockRow():
		r := t.BlockAlignment()
		return (row - 1) / r, ((row-1)%r)*1 + r*(col-1)
	case t.IsBlockCol():
		c := t.BlockAlignment()
		return (col - 1) / c, ((col-1)%c)*1 + c*(row-1)
	default:
		return row, col
	}
}

// Transform changes the partition's sort key to t: every Element's mapped
// coordinate is computed, the array is stably resorted lexicographically by
// (mapped-row, mapped-col), and RowPtr is rebuilt to the new row count and
// boundaries. Pattern marks (InPattern/PatternStart/Inst/RunLen) travel with
// each Element across the resort: the encoding manager relies on this to
// keep elements already committed to a winning pattern from an earlier
// round excluded from candidate runs in every later round, regardless of
// which Type is currently being searched.
func (p *Partition) Transform(t encoding.Type) {
	if p.Type == t {
		return
	}

	type keyed struct {
		k1, k2 int
		e      Element
	}
	tmp := make([]keyed, len(p.Elems))
	for i, e := range p.Elems {
		k1, k2 := mapCoord(t, e.Row, e.Col)
		tmp[i] = keyed{k1, k2, e}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		if tmp[i].k1 != tmp[j].k1 {
			return tmp[i].k1 < tmp[j].k1
		}
		return tmp[i].k2 < tmp[j].k2
	})

	nrows := 0
	if len(tmp) > 0 {
		nrows = tmp[len(tmp)-1].k1 - tmp[0].k1 + 1
	}
	minK1 := 0
	if len(tmp) > 0 {
		minK1 = tmp[0].k1
	}
	if t == encoding.Horizontal && len(tmp) > 0 {
		// local rows are 1-based: keep leading empty rows in place so row
		// numbers match Element.Row again.
		minK1 = 1
		nrows = tmp[len(tmp)-1].k1
	}

	elems := make([]Element, len(tmp))
	rowptr := make([]int, nrows+1)
	cursor := 0
	for i, kv := range tmp {
		elems[i] = kv.e
		for cursor <= kv.k1-minK1 {
			rowptr[cursor] = i
			cursor++
		}
	}
	for cursor <= nrows {
		rowptr[cursor] = len(tmp)
		cursor++
	}

	p.Elems = elems
	p.RowPtr = rowptr
	p.NRows = nrows
	p.Type = t
}

// Window is a view over a contiguous local-row range of a Partition, used to
// bound per-sample work in the statistics engine.
type Window struct {
	owner      *Partition
	StartRow   int // 1-based local row, inclusive
	EndRow     int // 1-based local row, exclusive
	RowPtr     []int
	Elems      []Element
}

// Window returns a view over local rows [start, start+length).
func (p *Partition) Window(start, length int) *Window {
	end := start + length
	if start < 1 {
		start = 1
	}
	if end > p.NRows+1 {
		end = p.NRows + 1
	}
	lo := p.RowPtr[start-1]
	hi := p.RowPtr[end-1]
	rowptr := make([]int, end-start+1)
	for i := range rowptr {
		rowptr[i] = p.RowPtr[start-1+i] - lo
	}
	return &Window{
		owner:    p,
		StartRow: start,
		EndRow:   end,
		RowPtr:   rowptr,
		Elems:    p.Elems[lo:hi:hi],
	}
}

// NNZ returns the number of non-zeros covered by the window.
func (w *Window) NNZ() int { return len(w.Elems) }

// PutWindow merges a possibly re-encoded window back into its owning
// partition. Because pattern extraction only ever marks existing elements
// (never changes row membership), merging back is an in-place overwrite of
// the covered element range.
func (w *Window) PutWindow() {
	lo := w.owner.RowPtr[w.StartRow-1]
	copy(w.owner.Elems[lo:lo+len(w.Elems)], w.Elems)
}
