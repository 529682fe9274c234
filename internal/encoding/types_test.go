package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTypeRoundTrip(t *testing.T) {
	for _, tc := range AllConcreteTypes() {
		parsed, err := ParseType(tc.String())
		require.NoError(t, err)
		require.Equal(t, tc, parsed)
	}
}

func TestParseTypeUnknown(t *testing.T) {
	_, err := ParseType("not-a-type")
	require.Error(t, err)
}

func TestBlockAlignment(t *testing.T) {
	require.Equal(t, 1, BlockRow1.BlockAlignment())
	require.Equal(t, 8, BlockRow8.BlockAlignment())
	require.Equal(t, 3, BlockCol3.BlockAlignment())
	require.Equal(t, 0, Horizontal.BlockAlignment())
}

func TestExpandGroups(t *testing.T) {
	require.Len(t, Expand(BlockRows), 8)
	require.Len(t, Expand(BlockCols), 8)
	require.Equal(t, AllConcreteTypes(), Expand(All))
	require.Equal(t, []Type{Horizontal}, Expand(Horizontal))
}

func TestIsGroupAndIsBlock(t *testing.T) {
	require.True(t, BlockRows.IsGroup())
	require.False(t, Horizontal.IsGroup())
	require.True(t, BlockRow4.IsBlock())
	require.True(t, BlockCol2.IsBlock())
	require.False(t, Vertical.IsBlock())
}
