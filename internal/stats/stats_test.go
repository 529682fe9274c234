package stats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/encoding"
	"github.com/cslab-ntua/spx/internal/partition"
	"github.com/cslab-ntua/spx/internal/stats"
)

// one row of 16 columns holding six non-zeros: a horizontal run of 4 evenly-spaced columns plus two
// isolated elements, so Gather must find exactly one Horizontal(delta=2)
// instantiation covering 4 elements and singletons for the rest.
func horizontalRun() *partition.Partition {
	rowptr := []int{0, 6}
	colind := []int{0, 2, 4, 6, 9, 15}
	values := []float64{1, 2, 3, 4, 5, 6}
	p, err := partition.FromCSR(0, 1, 16, rowptr, colind, values, 0)
	if err != nil {
		panic(err)
	}
	return p
}

func TestGatherFindsHorizontalRun(t *testing.T) {
	p := horizontalRun()
	c := stats.Gather(p, 3)

	inst := encoding.Instantiation{Type: encoding.Horizontal, Delta: 2}
	e, ok := c[inst]
	require.True(t, ok)
	require.Equal(t, 4, e.NNZCovered)
	require.Equal(t, 1, e.NInstances)

	none := encoding.Instantiation{Type: encoding.None, Delta: encoding.WidthFor(9)}
	_, ok = c[none]
	require.True(t, ok, "the two isolated elements should fall back to singleton accounting")
}

func TestGatherRespectsMinLimit(t *testing.T) {
	p := horizontalRun()
	// a run of 4 elements can't qualify for a min_unit_size of 5.
	c := stats.Gather(p, 5)

	inst := encoding.Instantiation{Type: encoding.Horizontal, Delta: 2}
	_, ok := c[inst]
	require.False(t, ok)
}

func TestApplyCoverageFilterDropsLowCoverage(t *testing.T) {
	c := stats.Collection{
		{Type: encoding.Horizontal, Delta: 2}: {NNZCovered: 1, NInstances: 1},
		{Type: encoding.Horizontal, Delta: 3}: {NNZCovered: 9, NInstances: 1},
		{Type: encoding.None, Delta: 32}:      {NNZCovered: 1, NDeltas: 1},
	}
	stats.ApplyCoverageFilter(c, 10, 0.5)

	_, ok := c[encoding.Instantiation{Type: encoding.Horizontal, Delta: 2}]
	require.False(t, ok, "10%% coverage should be dropped at a 50%% threshold")

	_, ok = c[encoding.Instantiation{Type: encoding.Horizontal, Delta: 3}]
	require.True(t, ok, "90%% coverage should survive")

	_, ok = c[encoding.Instantiation{Type: encoding.None, Delta: 32}]
	require.True(t, ok, "the None pseudo-instantiation is never filtered")
}

func TestMarkCoveredFlagsWinningRun(t *testing.T) {
	p := horizontalRun()
	winners := map[encoding.Instantiation]bool{
		{Type: encoding.Horizontal, Delta: 2}: true,
	}
	marked := stats.MarkCovered(p, winners, 3)
	require.Equal(t, 4, marked)

	row := p.IterateRow(1)
	require.True(t, row[0].PatternStart)
	require.Equal(t, 4, row[0].RunLen)
	for i := 0; i < 4; i++ {
		require.True(t, row[i].InPattern)
	}
	require.False(t, row[4].InPattern)
	require.False(t, row[5].InPattern)
}
