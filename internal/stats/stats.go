// Package stats implements the CSX statistics engine: for a
// partition held in a given iteration Type, discover candidate (Type, delta)
// instantiations and tally their coverage so the encoding manager can score
// and select between them.
package stats

import (
	"github.com/cslab-ntua/spx/internal/encoding"
	"github.com/cslab-ntua/spx/internal/partition"
)

// Entry is the per-instantiation tally: how many elements a candidate would
// cover, how many separate runs (instances) it would take, and — for the
// None (unencoded) pseudo-instantiation — how many individual delta values
// that width would require.
type Entry struct {
	NNZCovered int
	NInstances int
	NDeltas    int
}

// Collection maps an Instantiation to its tally for one statistics pass.
type Collection map[encoding.Instantiation]*Entry

func (c Collection) add(inst encoding.Instantiation, covered int) {
	e, ok := c[inst]
	if !ok {
		e = &Entry{}
		c[inst] = e
	}
	e.NNZCovered += covered
	e.NInstances++
}

func (c Collection) addSingleton(width int) {
	inst := encoding.Instantiation{Type: encoding.None, Delta: width}
	e, ok := c[inst]
	if !ok {
		e = &Entry{}
		c[inst] = e
	}
	e.NNZCovered++
	e.NDeltas++
}

// Gather walks every row of p (which must already be in the Type being
// searched) and produces per-instantiation tallies for that Type, following
// the run-length encoding of inter-element deltas.
// Elements already marked InPattern from a previous pass are treated as run
// boundaries and are not recounted. minLimit is the smallest run length
// (the matrix's min_unit_size) that qualifies as a pattern instance rather
// than staying "unencoded".
func Gather(p *partition.Partition, minLimit int) Collection {
	c := make(Collection)

	if p.Type.IsBlockRow() || p.Type.IsBlockCol() {
		gatherBlock(p, p.Type, minLimit, c)
		return c
	}

	for i := 1; i <= p.NRows; i++ {
		row := p.IterateRow(i)
		start := 0
		for start < len(row) {
			if row[start].InPattern {
				start++
				continue
			}
			end := start + 1
			for end < len(row) && !row[end].InPattern {
				end++
			}
			gatherLinearRun(row[start:end], p.Type, minLimit, c)
			start = end
		}
	}
	return c
}

// secondaryCoord extracts the coordinate that varies within a run for the
// current linear Type, matching the key2 component of partition.Transform.
func secondaryCoord(t encoding.Type, e partition.Element) int {
	switch t {
	case encoding.Horizontal:
		return e.Col
	case encoding.Vertical:
		return e.Row
	case encoding.Diagonal, encoding.AntiDiagonal:
		return e.Row
	default:
		return e.Col
	}
}

func gatherLinearRun(run []partition.Element, t encoding.Type, minLimit int, c Collection) {
	i := 0
	for i < len(run) {
		j := i + 1
		d := 0
		if j < len(run) {
			d = secondaryCoord(t, run[j]) - secondaryCoord(t, run[i])
		}
		for j < len(run) {
			nd := secondaryCoord(t, run[j]) - secondaryCoord(t, run[j-1])
			if nd != d {
				break
			}
			j++
		}
		runLen := j - i
		if runLen >= minLimit && runLen >= 2 && d != 0 {
			c.add(encoding.Instantiation{Type: t, Delta: d}, runLen)
		} else {
			for k := i; k < j; k++ {
				width := encoding.WidthFor(uint64(absInt(secondaryCoord(t, run[k]))))
				c.addSingleton(width)
			}
		}
		i = j
	}
}

// gatherBlock looks, within every local "row" (really: block-aligned group
// produced by Transform), for a dense run of r*w consecutive key2 values,
// which signals a full r x w rectangular block. one_dim_blocks (w==1)
// candidates are only credited when at least 2*r elements are present.
func gatherBlock(p *partition.Partition, t encoding.Type, minLimit int, c Collection) {
	r := t.BlockAlignment()
	for i := 1; i <= p.NRows; i++ {
		row := p.IterateRow(i)
		start := 0
		for start < len(row) {
			if row[start].InPattern {
				start++
				continue
			}
			end := start + 1
			for end < len(row) && !row[end].InPattern {
				end++
			}
			gatherBlockRun(row[start:end], t, r, minLimit, c)
			start = end
		}
	}
}

// blockSecondaryCoord computes the key2 component of partition.Transform's
// block bijection directly from an Element's exported coordinates, mirroring
// the unexported mapCoord used to bring a partition into block order.
func blockSecondaryCoord(t encoding.Type, r int, e partition.Element) int {
	if t.IsBlockRow() {
		return (e.Row-1)%r + r*(e.Col-1)
	}
	return (e.Col-1)%r + r*(e.Row-1)
}

// gatherBlockRun scans one contiguous (non-InPattern) run for a dense,
// r-aligned rectangular block. A block only exists where key2 values are
// exactly consecutive integers (no gaps) starting on an r-aligned boundary
// (key2 % r == 0): leading elements before such a boundary are skipped one
// at a time (the "(row-1) mod r leading elements" the matrix format skips
// before block detection), and once the maximal consecutive stretch from
// that boundary is found, any trailing remainder that isn't itself a whole
// multiple of r is similarly skipped rather than credited. The resulting
// usable length, if it clears minLimit, is credited as one block instance;
// everything else in the run is accounted as singletons.
func gatherBlockRun(run []partition.Element, t encoding.Type, r int, minLimit int, c Collection) {
	i := 0
	for i < len(run) {
		if blockSecondaryCoord(t, r, run[i])%r != 0 {
			c.addSingleton(encoding.Delta32)
			i++
			continue
		}

		j := i + 1
		for j < len(run) {
			d := blockSecondaryCoord(t, r, run[j]) - blockSecondaryCoord(t, r, run[j-1])
			if d != 1 {
				break
			}
			j++
		}

		dense := j - i
		usable := (dense / r) * r
		w := usable / r
		if usable >= r && usable >= minLimit && !(w == 1 && usable < 2*r) {
			c.add(encoding.Instantiation{Type: t, Delta: w}, usable)
			for k := i + usable; k < j; k++ {
				c.addSingleton(encoding.Delta32)
			}
		} else {
			for k := i; k < j; k++ {
				c.addSingleton(encoding.Delta32)
			}
		}
		i = j
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ApplyCoverageFilter drops any instantiation whose share of the partition's
// non-zeros falls below minCoverage.
func ApplyCoverageFilter(c Collection, partitionNNZ int, minCoverage float64) {
	if minCoverage <= 0 || partitionNNZ == 0 {
		return
	}
	for inst, e := range c {
		if inst.Type == encoding.None {
			continue
		}
		if float64(e.NNZCovered)/float64(partitionNNZ) < minCoverage {
			delete(c, inst)
		}
	}
}

// MarkCovered marks every element belonging to a winning instantiation's
// runs as InPattern (and the first of each run as PatternStart), mirroring
// the covered elements as InPattern. It returns
// the number of elements newly marked.
func MarkCovered(p *partition.Partition, winners map[encoding.Instantiation]bool, minLimit int) int {
	marked := 0
	isBlock := p.Type.IsBlockRow() || p.Type.IsBlockCol()
	var r int
	if isBlock {
		r = p.Type.BlockAlignment()
	}
	for i := 1; i <= p.NRows; i++ {
		row := p.IterateRow(i)
		off := p.RowPtr[i-1]
		start := 0
		for start < len(row) {
			if row[start].InPattern {
				start++
				continue
			}
			end := start + 1
			for end < len(row) && !row[end].InPattern {
				end++
			}
			if isBlock {
				markBlockRun(p, off+start, off+end, p.Type, r, winners)
				for k := off + start; k < off+end; k++ {
					if p.Elems[k].InPattern {
						marked++
					}
				}
			} else {
				marked += markLinearRun(p, off+start, off+end, p.Type, minLimit, winners)
			}
			start = end
		}
	}
	return marked
}

func markLinearRun(p *partition.Partition, lo, hi int, t encoding.Type, minLimit int, winners map[encoding.Instantiation]bool) int {
	elems := p.Elems
	i := lo
	total := 0
	for i < hi {
		j := i + 1
		d := 0
		if j < hi {
			d = secondaryCoord(t, elems[j]) - secondaryCoord(t, elems[i])
		}
		for j < hi {
			nd := secondaryCoord(t, elems[j]) - secondaryCoord(t, elems[j-1])
			if nd != d {
				break
			}
			j++
		}
		runLen := j - i
		inst := encoding.Instantiation{Type: t, Delta: d}
		if runLen >= minLimit && runLen >= 2 && d != 0 && winners[inst] {
			elems[i].PatternStart = true
			elems[i].Inst = inst
			elems[i].RunLen = runLen
			for k := i; k < j; k++ {
				elems[k].InPattern = true
			}
			total += runLen
		}
		i = j
	}
	return total
}

// markBlockRun re-derives the same verified-dense-rectangle subrange that
// gatherBlockRun would credit from [lo, hi), and marks it PatternStart/
// InPattern only if that exact instantiation won. This keeps the elements
// emitPattern later trusts as a contiguous tile consistent with the geometry
// actually checked at discovery time, rather than any same-length run.
func markBlockRun(p *partition.Partition, lo, hi int, t encoding.Type, r int, winners map[encoding.Instantiation]bool) {
	elems := p.Elems
	i := lo
	for i < hi {
		if blockSecondaryCoord(t, r, elems[i])%r != 0 {
			i++
			continue
		}

		j := i + 1
		for j < hi {
			d := blockSecondaryCoord(t, r, elems[j]) - blockSecondaryCoord(t, r, elems[j-1])
			if d != 1 {
				break
			}
			j++
		}

		dense := j - i
		usable := (dense / r) * r
		w := usable / r
		if usable >= r && !(w == 1 && usable < 2*r) {
			inst := encoding.Instantiation{Type: t, Delta: w}
			if winners[inst] {
				elems[i].PatternStart = true
				elems[i].Inst = inst
				elems[i].RunLen = usable
				for k := i; k < i+usable; k++ {
					elems[k].InPattern = true
				}
			}
		}
		i = j
	}
}
