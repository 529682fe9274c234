// Package encoder implements the CSX encoding manager: it drives
// the statistics engine through either the default iterative cost/coverage
// search or a user-supplied explicit encoding sequence, repeatedly
// transforming a Partition and marking the winning pattern runs until no
// further type yields a net positive score.
package encoder

import (
	"sort"

	"github.com/cslab-ntua/spx/internal/encoding"
	"github.com/cslab-ntua/spx/internal/partition"
	"github.com/cslab-ntua/spx/internal/stats"
)

// Heuristic selects the scoring function used to rank candidate
// instantiations (spx.preproc.heuristic).
type Heuristic int

const (
	// Cover scores purely by elements saved: nnz_covered - n_instances.
	Cover Heuristic = iota
	// Cost additionally penalises per-instance unit-header overhead and
	// delta-encoding switches accumulated so far.
	Cost
)

// Sequence is one explicit (Type, {deltas}) step of a user-supplied
// EncodingSequence (spx.preproc.xform with explicit deltas rather than a
// bare type list).
type Sequence struct {
	Type   encoding.Type
	Deltas []int
}

// Config mirrors the RuntimeConfiguration keys that govern encoding (spec
// §6). A nil Explicit triggers the default iterative search over Types.
type Config struct {
	Heuristic    Heuristic
	Types        []encoding.Type // searched types; nil means every concrete Type
	Explicit     []Sequence
	MinUnitSize  int
	MaxUnitSize  int
	MinCoverage  float64
	SplitBlocks  bool
	OneDimBlocks bool

	Sampling SamplingConfig
}

// DefaultConfig returns the manager defaults matching the reference's
// out-of-the-box behaviour: iterative search, cost heuristic, no sampling.
func DefaultConfig() Config {
	return Config{
		Heuristic:   Cost,
		MinUnitSize: 2,
		MaxUnitSize: 255,
		MinCoverage: 0,
	}
}

func (c Config) searchTypes() []encoding.Type {
	if len(c.Types) == 0 {
		return encoding.AllConcreteTypes()
	}
	out := make([]encoding.Type, 0, len(c.Types))
	for _, t := range c.Types {
		out = append(out, encoding.Expand(t)...)
	}
	return out
}

func score(h Heuristic, e *stats.Entry, cumulativeDeltas int) int {
	base := e.NNZCovered - e.NInstances
	if h == Cover {
		return base
	}
	return base - (e.NInstances + cumulativeDeltas + e.NInstances)
}

// maxRounds bounds the iterative search so a pathological input (e.g. every
// type scoring exactly zero forever) cannot loop indefinitely; the reference
// terminates naturally once no type scores positive, which in practice is
// reached in a handful of rounds.
const maxRounds = 64

// Encode drives the encoding manager over p according to cfg, marking
// pattern runs in place (partition.Element.InPattern/PatternStart/Inst).
// It never fails outright: if no Type ever scores positively the partition
// is left fully unencoded (pure singleton/None), matching the tolerated
// EncodingFailure policy.
func Encode(p *partition.Partition, cfg Config) {
	if len(cfg.Explicit) > 0 {
		encodeExplicit(p, cfg)
		return
	}
	encodeIterative(p, cfg)
}

func encodeExplicit(p *partition.Partition, cfg Config) {
	for _, seq := range cfg.Explicit {
		if seq.Type == encoding.None || len(seq.Deltas) == 0 {
			continue
		}
		p.Transform(seq.Type)
		winners := make(map[encoding.Instantiation]bool, len(seq.Deltas))
		for _, d := range seq.Deltas {
			winners[encoding.Instantiation{Type: seq.Type, Delta: d}] = true
		}
		stats.MarkCovered(p, winners, 2)
	}
}

func encodeIterative(p *partition.Partition, cfg Config) {
	cumulativeDeltas := 0
	searchTypes := cfg.searchTypes()

	for round := 0; round < maxRounds; round++ {
		var bestType encoding.Type
		var bestWinners map[encoding.Instantiation]bool
		bestScore := 0
		found := false

		for _, t := range searchTypes {
			if !cfg.OneDimBlocks && t.IsBlock() && t.BlockAlignment() == 1 {
				continue
			}

			p.Transform(t)
			coll := applySampling(p, t, cfg)
			stats.ApplyCoverageFilter(coll, p.NNZ(), cfg.MinCoverage)
			if cfg.SplitBlocks {
				splitOversizeBlocks(coll, t, cfg.MaxUnitSize, cfg.MinCoverage)
			}

			winners := make(map[encoding.Instantiation]bool)
			typeScore := 0
			any := false
			for inst, e := range coll {
				if inst.Type == encoding.None {
					continue
				}
				sc := score(cfg.Heuristic, e, cumulativeDeltas)
				if sc <= 0 {
					continue
				}
				winners[inst] = true
				typeScore += sc
				any = true
			}

			if any && typeScore > bestScore {
				bestScore = typeScore
				bestType = t
				bestWinners = winners
				found = true
			}
		}

		if !found {
			break
		}

		p.Transform(bestType)
		marked := stats.MarkCovered(p, bestWinners, cfg.MinUnitSize)
		if cfg.Heuristic == Cost {
			cumulativeDeltas += marked
		}
	}
}

// splitOversizeBlocks implements the block-split post-filter: any block
// instantiation whose width exceeds MaxUnitSize's implied bound is broken
// into a chain of smaller widths drawn from the instantiations already
// present above min_coverage, iterated largest-first (mirroring the
// reference's "iterate encoded_inst_ in reverse").
func splitOversizeBlocks(c stats.Collection, t encoding.Type, maxUnitSize int, minCoverage float64) {
	if !t.IsBlockRow() && !t.IsBlockCol() {
		return
	}
	r := t.BlockAlignment()
	if r == 0 {
		return
	}
	maxWidth := maxUnitSize / r
	if maxWidth < 1 {
		maxWidth = 1
	}

	var widths []int
	for inst, e := range c {
		if inst.Type != t || inst.Delta > maxWidth {
			continue
		}
		if minCoverage > 0 {
			total := 0
			for _, e2 := range c {
				total += e2.NNZCovered
			}
			if total > 0 && float64(e.NNZCovered)/float64(total) < minCoverage {
				continue
			}
		}
		widths = append(widths, inst.Delta)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(widths)))

	for inst, e := range c {
		if inst.Type != t || inst.Delta <= maxWidth {
			continue
		}
		remaining := inst.Delta
		covered := e.NNZCovered
		instances := e.NInstances
		delete(c, inst)
		for _, w := range widths {
			if remaining <= 0 {
				break
			}
			take := w
			if take > remaining {
				take = remaining
			}
			sub := encoding.Instantiation{Type: t, Delta: take}
			se, ok := c[sub]
			if !ok {
				se = &stats.Entry{}
				c[sub] = se
			}
			scale := 0
			if inst.Delta > 0 {
				scale = covered * take / (inst.Delta * r)
			}
			se.NNZCovered += scale
			se.NInstances += instances
			remaining -= take
		}
	}
}
