package encoder

import (
	"github.com/cslab-ntua/spx/internal/encoding"
	"github.com/cslab-ntua/spx/internal/partition"
	"github.com/cslab-ntua/spx/internal/stats"
)

// SamplingPolicy selects how a partition is subsampled before gathering
// statistics, trading discovery accuracy for preprocessing time on very wide
// partitions.
type SamplingPolicy int

const (
	// NoSampling gathers statistics over every row of the partition.
	NoSampling SamplingPolicy = iota
	// WindowSampling gathers statistics from a single contiguous run of
	// NSamples local rows starting at row 1.
	WindowSampling
	// PortionSampling gathers statistics from evenly-spaced windows
	// totalling roughly Portion of the partition's rows.
	PortionSampling
)

// SamplingConfig mirrors spx.preproc.sampling.*.
type SamplingConfig struct {
	Policy    SamplingPolicy
	NSamples  int     // rows per window (Window policy)
	NWindows  int     // number of windows (Portion policy)
	Portion   float64 // fraction of rows to cover (Portion policy)
}

// applySampling gathers statistics either over the whole partition or over a
// reduced set of row windows, then rescales NNZCovered/NInstances back up to
// an estimate for the full partition so downstream scoring is comparable
// across sampled and unsampled runs.
func applySampling(p *partition.Partition, t encoding.Type, cfg Config) stats.Collection {
	if cfg.Sampling.Policy == NoSampling || p.NRows == 0 {
		return stats.Gather(p, cfg.MinUnitSize)
	}

	windows := sampleWindows(p, cfg.Sampling)
	if len(windows) == 0 {
		return stats.Gather(p, cfg.MinUnitSize)
	}

	merged := make(stats.Collection)
	sampledNNZ := 0
	for _, w := range windows {
		sampledNNZ += w.NNZ()
		sub := &partition.Partition{
			RowStart: p.RowStart + w.StartRow - 1,
			NRows:    w.EndRow - w.StartRow,
			NCols:    p.NCols,
			Type:     p.Type,
			RowPtr:   w.RowPtr,
			Elems:    w.Elems,
		}
		for inst, e := range stats.Gather(sub, cfg.MinUnitSize) {
			me, ok := merged[inst]
			if !ok {
				me = &stats.Entry{}
				merged[inst] = me
			}
			me.NNZCovered += e.NNZCovered
			me.NInstances += e.NInstances
			me.NDeltas += e.NDeltas
		}
	}

	if sampledNNZ == 0 || sampledNNZ >= p.NNZ() {
		return merged
	}
	scale := float64(p.NNZ()) / float64(sampledNNZ)
	for _, e := range merged {
		e.NNZCovered = int(float64(e.NNZCovered) * scale)
		e.NInstances = int(float64(e.NInstances) * scale)
	}
	return merged
}

func sampleWindows(p *partition.Partition, cfg SamplingConfig) []*partition.Window {
	switch cfg.Policy {
	case WindowSampling:
		n := cfg.NSamples
		if n <= 0 || n > p.NRows {
			n = p.NRows
		}
		return []*partition.Window{p.Window(1, n)}
	case PortionSampling:
		nw := cfg.NWindows
		if nw <= 0 {
			nw = 1
		}
		portion := cfg.Portion
		if portion <= 0 || portion > 1 {
			portion = 1
		}
		totalRows := int(float64(p.NRows) * portion)
		if totalRows < nw {
			totalRows = nw
		}
		perWindow := totalRows / nw
		if perWindow < 1 {
			perWindow = 1
		}
		stride := p.NRows / nw
		if stride < perWindow {
			stride = perWindow
		}
		out := make([]*partition.Window, 0, nw)
		row := 1
		for i := 0; i < nw && row <= p.NRows; i++ {
			out = append(out, p.Window(row, perWindow))
			row += stride
		}
		return out
	default:
		return nil
	}
}
