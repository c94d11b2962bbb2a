package optimizer

import (
	"fmt"
	"math/rand"

	"github.com/TimothyStiles/nupack/defect"
)

// SampleMode selects which of the four nucleotide-position sampling
// strategies SamplePositions uses.
type SampleMode int

const (
	// FirstDefect samples from the first listed defect's contributions
	// only.
	FirstDefect SampleMode = iota
	// StochasticHierarchical first picks one objective's defect, weighted
	// by its (optionally weighted) total, then samples positions from
	// that defect's contributions. This is the default.
	StochasticHierarchical
	// Scalarized sums every (optionally weighted) defect's contributions
	// into one combined defect and samples from that.
	Scalarized
	// Uniform ignores defects entirely and samples positions uniformly
	// at random without replacement.
	Uniform
)

// SamplePositions chooses num nucleotide positions to mutate from a
// leaf's set of per-objective defects, per mode. weights scales each
// defect's influence; pass nil to weight every defect equally. For
// Uniform, defects/weights are ignored and positions are drawn from
// [0, numVariables).
func SamplePositions(mode SampleMode, defects []defect.Defect, weights []float64, numVariables, num int, rng *rand.Rand) ([]int, error) {
	if len(weights) != 0 && len(weights) != len(defects) {
		return nil, fmt.Errorf("optimizer: weight count %d does not match defect count %d", len(weights), len(defects))
	}
	switch mode {
	case FirstDefect:
		if len(defects) == 0 {
			return nil, fmt.Errorf("optimizer: no defects to sample from")
		}
		return defects[0].SampleNucleotides(num, rng), nil
	case StochasticHierarchical:
		idx, err := weightedChoice(defects, weights, rng)
		if err != nil {
			return nil, err
		}
		return defects[idx].SampleNucleotides(num, rng), nil
	case Scalarized:
		combined := combine(defects, weights)
		return combined.SampleNucleotides(num, rng), nil
	case Uniform:
		return uniformSample(numVariables, num, rng), nil
	default:
		return nil, fmt.Errorf("optimizer: unknown sample mode %d", mode)
	}
}

// weightedChoice picks one defect index, weighted by weight[i]*defects[i].Total().
// If every candidate weight is zero (no defect contributes anything),
// falls back to the first defect, since there is nothing left to weight
// a choice by.
func weightedChoice(defects []defect.Defect, weights []float64, rng *rand.Rand) (int, error) {
	if len(defects) == 0 {
		return 0, fmt.Errorf("optimizer: no defects to choose from")
	}
	totals := make([]float64, len(defects))
	var sum float64
	for i, d := range defects {
		w := 1.0
		if len(weights) != 0 {
			w = weights[i]
		}
		totals[i] = w * d.Total()
		sum += totals[i]
	}
	if sum <= 0 {
		return 0, nil
	}
	stop := rng.Float64() * sum
	var cumulative float64
	for i, t := range totals {
		cumulative += t
		if stop <= cumulative {
			return i, nil
		}
	}
	return len(defects) - 1, nil
}

// combine scales each defect by its weight (default 1) and merges the
// results into a single Defect, reducing repeated indices.
func combine(defects []defect.Defect, weights []float64) defect.Defect {
	var merged defect.Defect
	for i, d := range defects {
		w := 1.0
		if len(weights) != 0 {
			w = weights[i]
		}
		merged.Contributions = append(merged.Contributions, d.Scaled(w).Contributions...)
	}
	return merged.Reduced()
}

// uniformSample draws num distinct indices from [0, numVariables) without
// replacement.
func uniformSample(numVariables, num int, rng *rand.Rand) []int {
	if num >= numVariables {
		out := make([]int, numVariables)
		for i := range out {
			out[i] = i
		}
		return out
	}
	pool := make([]int, numVariables)
	for i := range pool {
		pool[i] = i
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return append([]int(nil), pool[:num]...)
}
