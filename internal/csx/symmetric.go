package csx

// Symmetric wraps a per-thread Matrix encoding the lower triangle of a
// symmetric matrix. Dvalues holds the stripped diagonal;
// ReductionMap records, for every off-diagonal element this thread owns,
// which thread's row range holds its column (possibly this thread's own)
// and where to collect the mirrored contribution so that thread can fold it
// in during the reduction phase.
type Symmetric struct {
	*Matrix
	Dvalues []float64

	// ReductionMap: entries destined for thread ReductionMap[k].DestThread,
	// contributed into this thread's local buffer at LocalIndex, to be
	// added into y[Col] once every thread has finished its local pass.
	ReductionMap []ReductionEntry
}

// ReductionEntry is one (source-thread-local-index → destination column)
// pair, built once per partition at encode time.
type ReductionEntry struct {
	DestThread int
	Col        int // global column, owned by DestThread
	LocalIndex int // index into this thread's tmp[] buffer
}

// BuildReductionMap scans the lower-triangle partition's off-diagonal
// elements (col < rowStart+1) and assigns each a slot in this thread's local
// accumulation buffer, recording which destination thread ultimately owns
// that column. threadRowStart/threadRowEnd give the global row range each
// thread owns (half-open), used to resolve a column to its owning thread.
func BuildReductionMap(cols []int, threadRowStart, threadRowEnd []int) ([]ReductionEntry, int) {
	entries := make([]ReductionEntry, 0, len(cols))
	localSize := 0
	for _, c := range cols {
		dest := ownerOf(c, threadRowStart, threadRowEnd)
		entries = append(entries, ReductionEntry{DestThread: dest, Col: c, LocalIndex: localSize})
		localSize++
	}
	return entries, localSize
}

func ownerOf(col int, starts, ends []int) int {
	for t := range starts {
		if col >= starts[t] && col < ends[t] {
			return t
		}
	}
	return -1
}

// Reduce folds every thread's local buffer into the shared y vector for the
// columns this thread (dest) owns, per the reduction maps built by every
// thread, dest's own included. Must run after every thread's local multiply
// pass and before any thread reads y, i.e. behind the pool's third barrier.
func Reduce(y []float64, dest int, allLocalBuffers [][]float64, allMaps [][]ReductionEntry, scale float64) {
	for src, m := range allMaps {
		buf := allLocalBuffers[src]
		for _, e := range m {
			if e.DestThread != dest {
				continue
			}
			y[e.Col] += buf[e.LocalIndex] * scale
		}
	}
}
