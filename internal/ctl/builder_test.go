package ctl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40}

	b := NewBuilder(0)
	for _, v := range values {
		b.AppendVarint(v)
	}

	r := NewReader(b.Bytes())
	for _, want := range values {
		require.False(t, r.Done())
		require.Equal(t, want, r.ReadVarint())
	}
	require.True(t, r.Done())
}

func TestAppendFixedWidths(t *testing.T) {
	b := NewBuilder(0)
	b.AppendFixed(0xAB, 1, 0)
	b.AppendFixed(0xBEEF, 2, 0)
	b.AppendFixed(0xDEADBEEF, 4, 0)

	r := NewReader(b.Bytes())
	require.Equal(t, uint64(0xAB), r.ReadFixed(1))
	require.Equal(t, uint64(0xBEEF), r.ReadFixed(2))
	require.Equal(t, uint64(0xDEADBEEF), r.ReadFixed(4))
}

func TestAppendUnitHeaderRoundTrip(t *testing.T) {
	b := NewBuilder(0)
	err := b.AppendUnitHeader(UnitHeader{NewRow: true, RowJump: true, RowsJumped: 3, PatternID: 5, Size: 10})
	require.NoError(t, err)

	r := NewReader(b.Bytes())
	h := r.ReadUnitHeader()
	require.True(t, h.NewRow)
	require.True(t, h.RowJump)
	require.Equal(t, 3, h.RowsJumped)
	require.Equal(t, 5, h.PatternID)
	require.Equal(t, 10, h.Size)
}

func TestAppendUnitHeaderRejectsOutOfRange(t *testing.T) {
	b := NewBuilder(0)
	require.ErrorIs(t, b.AppendUnitHeader(UnitHeader{Size: 0}), ErrUnitTooLarge)
	require.ErrorIs(t, b.AppendUnitHeader(UnitHeader{Size: 256}), ErrUnitTooLarge)
	require.ErrorIs(t, b.AppendUnitHeader(UnitHeader{Size: 1, PatternID: 64}), ErrPatternIDTooLarge)
}
