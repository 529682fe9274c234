// Package reorder implements mat_tune's OP_REORDER option: a row/column
// permutation intended to reduce matrix bandwidth so later row-partitioning
// and pattern discovery see more locality. This follows the reference's
// RCM reordering graph library as an out-of-scope external collaborator;
// this rewrite reimplements the spirit of RCM (breadth-first level traversal
// from a minimum-degree start vertex) using github.com/katalvlaran/lvlath's core graph and bfs
// packages rather than a hand-rolled graph walk, since lvlath is the only
// graph library present anywhere in the example pack.
package reorder

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
)

// Permutation maps new index -> original 0-based row/column index (and its
// inverse), for a symmetric reordering applied to both rows and columns of
// a square matrix.
type Permutation struct {
	Perm    []int // Perm[newIdx] = oldIdx
	Inverse []int // Inverse[oldIdx] = newIdx
}

// Compute builds a bandwidth-reducing permutation for an n x n matrix given
// its upper (or full) adjacency as CSR (rowptr, colind), using a BFS
// levelization starting from the minimum-degree vertex in each connected
// component, then numbering vertices in BFS visitation order — the same
// high-level strategy as Cuthill-McKee, implemented over lvlath's BFS
// rather than a bespoke queue.
func Compute(n int, rowptr, colind []int) (*Permutation, error) {
	if n == 0 {
		return &Permutation{}, nil
	}
	g := core.NewGraph()
	for i := 0; i < n; i++ {
		if err := g.AddVertex(vid(i)); err != nil {
			return nil, fmt.Errorf("reorder: add vertex: %w", err)
		}
	}
	added := make(map[[2]int]bool)
	for row := 0; row < n; row++ {
		for k := rowptr[row]; k < rowptr[row+1]; k++ {
			col := colind[k]
			if col == row {
				continue
			}
			a, b := row, col
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if added[key] {
				continue
			}
			added[key] = true
			if _, err := g.AddEdge(vid(a), vid(b), 0); err != nil {
				return nil, fmt.Errorf("reorder: add edge: %w", err)
			}
		}
	}

	degree := make([]int, n)
	for row := 0; row < n; row++ {
		degree[row] = rowptr[row+1] - rowptr[row]
	}

	visited := make([]bool, n)
	order := make([]int, 0, n)
	for {
		start := -1
		best := -1
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			if start == -1 || degree[i] < best {
				start = i
				best = degree[i]
			}
		}
		if start == -1 {
			break
		}
		res, err := bfs.BFS(g, vid(start))
		if err != nil {
			return nil, fmt.Errorf("reorder: bfs: %w", err)
		}
		comp := make([]int, 0, len(res.Order))
		for _, id := range res.Order {
			idx := idFromVid(id)
			if !visited[idx] {
				visited[idx] = true
				comp = append(comp, idx)
			}
		}
		order = append(order, comp...)
		if !visited[start] {
			visited[start] = true
			order = append(order, start)
		}
	}
	for i := 0; i < n; i++ {
		if !visited[i] {
			order = append(order, i)
			visited[i] = true
		}
	}

	p := &Permutation{Perm: order, Inverse: make([]int, n)}
	for newIdx, oldIdx := range order {
		p.Inverse[oldIdx] = newIdx
	}
	return p, nil
}

func vid(i int) string { return fmt.Sprintf("r%d", i) }

func idFromVid(id string) int {
	var i int
	fmt.Sscanf(id, "r%d", &i)
	return i
}

// Apply permutes a CSR matrix's rows and columns by p, returning a new CSR
// triple. Used by mat_tune(OP_REORDER) before partitioning.
func Apply(p *Permutation, rowptr, colind []int, values []float64) ([]int, []int, []float64) {
	n := len(p.Perm)
	newRowptr := make([]int, n+1)
	nnz := rowptr[n]
	newColind := make([]int, 0, nnz)
	newValues := make([]float64, 0, nnz)

	for newRow := 0; newRow < n; newRow++ {
		oldRow := p.Perm[newRow]
		newRowptr[newRow] = len(newColind)
		type pair struct {
			col int
			val float64
		}
		entries := make([]pair, 0, rowptr[oldRow+1]-rowptr[oldRow])
		for k := rowptr[oldRow]; k < rowptr[oldRow+1]; k++ {
			entries = append(entries, pair{p.Inverse[colind[k]], values[k]})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].col < entries[j].col })
		for _, e := range entries {
			newColind = append(newColind, e.col)
			newValues = append(newValues, e.val)
		}
	}
	newRowptr[n] = len(newColind)
	return newRowptr, newColind, newValues
}
