package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cslab-ntua/spx/internal/config"
)

func TestSetKnownMnemonics(t *testing.T) {
	c := config.Default()

	require.NoError(t, c.Set("spx.rt.nr_threads", "4"))
	require.Equal(t, 4, c.NrThreads)

	require.NoError(t, c.Set("spx.rt.cpu_affinity", "0,2,4"))
	require.Equal(t, []int{0, 2, 4}, c.CPUAffinity)

	require.NoError(t, c.Set("spx.preproc.heuristic", "cover"))
	require.Equal(t, config.HeuristicCover, c.Heuristic)

	require.NoError(t, c.Set("spx.matrix.symmetric", "true"))
	require.True(t, c.Symmetric)

	require.NoError(t, c.Set("spx.matrix.min_unit_size", "3"))
	require.Equal(t, 3, c.MinUnitSize)
}

func TestSetRejectsInvalidValues(t *testing.T) {
	c := config.Default()
	require.Error(t, c.Set("spx.rt.nr_threads", "-1"))
	require.Error(t, c.Set("spx.preproc.heuristic", "bogus"))
	require.Error(t, c.Set("spx.matrix.min_coverage", "2.0"))
	require.Error(t, c.Set("not.a.real.key", "x"))
}

func TestSetFromEnv(t *testing.T) {
	t.Setenv("SPX_RT_NR_THREADS", "6")
	t.Setenv("SPX_WINDOW_SIZE", "128")
	os.Unsetenv("SPX_CPU_AFFINITY")

	c := config.Default()
	require.NoError(t, c.SetFromEnv())
	require.Equal(t, 6, c.NrThreads)
	require.Equal(t, 128, c.WindowSize)
}
