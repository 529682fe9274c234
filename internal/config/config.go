// Package config implements the RuntimeConfiguration mnemonic table and the
// option_set / options_set_from_env entry points. The mnemonic
// table itself is part of a fixed wire contract, so it is
// hand-coded rather than delegated to a generic flags/env library; CLI flag
// parsing for the bundled benchmark lives separately in cmd/spmv_bench and
// does use github.com/spf13/pflag.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cslab-ntua/spx/internal/encoding"
)

// SamplingPolicy mirrors spx.preproc.sampling.
type SamplingPolicy string

const (
	SamplingNone    SamplingPolicy = "none"
	SamplingWindow  SamplingPolicy = "window"
	SamplingPortion SamplingPolicy = "portion"
)

// Heuristic mirrors spx.preproc.heuristic.
type Heuristic string

const (
	HeuristicCost  Heuristic = "cost"
	HeuristicCover Heuristic = "cover"
)

// RuntimeConfiguration holds every mnemonic from the option table, with
// the defaults the reference ships (cost heuristic, full_colind true, no
// sampling, min_unit_size 2, max_unit_size 255).
type RuntimeConfiguration struct {
	NrThreads   int
	CPUAffinity []int

	Heuristic    Heuristic
	Xform        []encoding.Type
	ExplicitSeq  bool // true iff Xform came from an explicit sequence, not a restriction list

	Sampling         SamplingPolicy
	SamplingSamples  int
	SamplingPortion  float64
	WindowSize       int

	Symmetric    bool
	SplitBlocks  bool
	OneDimBlocks bool
	FullColind   bool
	MinUnitSize  int
	MaxUnitSize  int
	MinCoverage  float64
}

// Default returns the RuntimeConfiguration with the reference's defaults.
func Default() RuntimeConfiguration {
	return RuntimeConfiguration{
		NrThreads:   1,
		Heuristic:   HeuristicCost,
		Sampling:    SamplingNone,
		FullColind:  true,
		MinUnitSize: 2,
		MaxUnitSize: 255,
	}
}

// Set applies one (mnemonic, value) pair, matching option_set(key, value).
// An unknown mnemonic or unparsable value returns an error, which the root
// package's OptionSet and OptionsSetFromEnv wrap as ErrConfigInvalid.
func (c *RuntimeConfiguration) Set(key, value string) error {
	switch key {
	case "spx.rt.nr_threads":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("config: %s: want positive integer, got %q", key, value)
		}
		c.NrThreads = n

	case "spx.rt.cpu_affinity":
		ids, err := parseIntList(value)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		c.CPUAffinity = ids

	case "spx.preproc.heuristic":
		switch value {
		case string(HeuristicCost), string(HeuristicCover):
			c.Heuristic = Heuristic(value)
		default:
			return fmt.Errorf("config: %s: want cost|cover, got %q", key, value)
		}

	case "spx.preproc.xform":
		if value == "none" {
			c.Xform = nil
			break
		}
		types, err := parseTypeList(value)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		c.Xform = types

	case "spx.preproc.sampling":
		switch value {
		case string(SamplingNone), string(SamplingWindow), string(SamplingPortion):
			c.Sampling = SamplingPolicy(value)
		default:
			return fmt.Errorf("config: %s: want none|window|portion, got %q", key, value)
		}

	case "spx.preproc.sampling.nr_samples":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("config: %s: want positive integer, got %q", key, value)
		}
		c.SamplingSamples = n

	case "spx.preproc.sampling.portion":
		p, err := strconv.ParseFloat(value, 64)
		if err != nil || p <= 0 || p > 1 {
			return fmt.Errorf("config: %s: want 0<p<=1, got %q", key, value)
		}
		c.SamplingPortion = p

	case "spx.preproc.window_size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("config: %s: want positive integer, got %q", key, value)
		}
		c.WindowSize = n

	case "spx.matrix.symmetric":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: %s: want bool, got %q", key, value)
		}
		c.Symmetric = b

	case "spx.matrix.split_blocks":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: %s: want bool, got %q", key, value)
		}
		c.SplitBlocks = b

	case "spx.matrix.one_dim_blocks":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: %s: want bool, got %q", key, value)
		}
		c.OneDimBlocks = b

	case "spx.matrix.full_colind":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: %s: want bool, got %q", key, value)
		}
		c.FullColind = b

	case "spx.matrix.min_unit_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 2 {
			return fmt.Errorf("config: %s: want int >= 2, got %q", key, value)
		}
		c.MinUnitSize = n

	case "spx.matrix.max_unit_size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 || n > 255 {
			return fmt.Errorf("config: %s: want 0<int<=255, got %q", key, value)
		}
		c.MaxUnitSize = n

	case "spx.matrix.min_coverage":
		p, err := strconv.ParseFloat(value, 64)
		if err != nil || p < 0 || p > 1 {
			return fmt.Errorf("config: %s: want 0<=c<=1, got %q", key, value)
		}
		c.MinCoverage = p

	default:
		return fmt.Errorf("config: unknown mnemonic %q", key)
	}
	return nil
}

// envMap is the fixed mapping from environment variable to mnemonic.
var envMap = map[string]string{
	"SPX_RT_NR_THREADS":    "spx.rt.nr_threads",
	"SPX_CPU_AFFINITY":     "spx.rt.cpu_affinity",
	"SPX_XFORM_CONF":       "spx.preproc.xform",
	"SPX_WINDOW_SIZE":      "spx.preproc.window_size",
	"SPX_SAMPLES":          "spx.preproc.sampling.nr_samples",
	"SPX_SAMPLING_PORTION": "spx.preproc.sampling.portion",
}

// SetFromEnv applies every recognised environment variable present in the
// process environment, matching options_set_from_env.
func (c *RuntimeConfiguration) SetFromEnv() error {
	for env, key := range envMap {
		if v, ok := os.LookupEnv(env); ok {
			if err := c.Set(key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("want comma list of ints, got %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseTypeList(s string) ([]encoding.Type, error) {
	parts := strings.Split(s, ",")
	out := make([]encoding.Type, 0, len(parts))
	for _, p := range parts {
		t, err := encoding.ParseType(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
