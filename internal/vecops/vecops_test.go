package vecops_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/vecops"
)

func TestCreateAndInit(t *testing.T) {
	v := vecops.Create(4)
	require.Equal(t, 4, v.Len())
	vecops.Init(v, 7)
	for i := 0; i < 4; i++ {
		require.Equal(t, 7.0, v.AtVec(i))
	}
}

func TestScaleAddSub(t *testing.T) {
	a := vecops.CreateFromBuff([]float64{1, 2, 3})
	b := vecops.CreateFromBuff([]float64{4, 5, 6})

	sum := vecops.Create(3)
	vecops.Add(sum, a, b)
	require.Equal(t, []float64{5, 7, 9}, sum.RawVector().Data)

	diff := vecops.Create(3)
	vecops.Sub(diff, b, a)
	require.Equal(t, []float64{3, 3, 3}, diff.RawVector().Data)

	scaled := vecops.Create(3)
	vecops.Scale(scaled, 2, a)
	require.Equal(t, []float64{2, 4, 6}, scaled.RawVector().Data)
}

func TestMulElementwise(t *testing.T) {
	a := vecops.CreateFromBuff([]float64{1, 2, 3})
	b := vecops.CreateFromBuff([]float64{4, 5, 6})
	out := vecops.Create(3)
	vecops.Mul(out, a, b)
	require.Equal(t, []float64{4, 10, 18}, out.RawVector().Data)
}

func TestReorderAndInvReorderRoundTrip(t *testing.T) {
	src := vecops.CreateFromBuff([]float64{10, 20, 30})
	perm := []int{2, 0, 1}

	reordered := vecops.Create(3)
	require.NoError(t, vecops.Reorder(reordered, src, perm))
	require.Equal(t, []float64{30, 10, 20}, reordered.RawVector().Data)

	back := vecops.Create(3)
	require.NoError(t, vecops.InvReorder(back, reordered, perm))
	require.Equal(t, src.RawVector().Data, back.RawVector().Data)
}

func TestCompareWithinTolerance(t *testing.T) {
	a := vecops.CreateFromBuff([]float64{1.0, 2.0})
	b := vecops.CreateFromBuff([]float64{1.0001, 2.0})
	require.True(t, vecops.Compare(a, b, 1e-3))
	require.False(t, vecops.Compare(a, b, 1e-6))
}

func TestCreateRandomIsReproducible(t *testing.T) {
	v1 := vecops.CreateRandom(5, rand.New(rand.NewSource(42)))
	v2 := vecops.CreateRandom(5, rand.New(rand.NewSource(42)))
	require.Equal(t, v1.RawVector().Data, v2.RawVector().Data)
}

func TestPrintFormatsBracketedList(t *testing.T) {
	v := vecops.CreateFromBuff([]float64{1, 2})
	require.Equal(t, "[1, 2]", vecops.Print(v))
}
