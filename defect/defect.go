/*
Package defect computes the sparse per-nucleotide ensemble defect that
drives every mutation decision: how far a complex's equilibrium pairing
is from its target structure, aggregated up through tube concentrations
to a single design-level scalar.

Defect values are stored sparsely (only positive contributions), since a
well-designed sequence has most nucleotides at or near zero defect and a
dense vector would waste space and iteration time across every depth-
indexed re-evaluation.
*/
package defect

import (
	"fmt"
	"math/rand"

	"github.com/TimothyStiles/nupack/sequence"
)

// Contribution is one nucleotide's (or one pool variable's, once
// projected) defect value.
type Contribution struct {
	Index int
	Value float64
}

// Defect is a sparse vector of non-negative contributions.
type Defect struct {
	Contributions []Contribution
}

// New builds a Defect from a dense vector, keeping only strictly
// positive entries (matching the reference implementation's filter on
// emplace).
func New(values []float64) Defect {
	var cs []Contribution
	for i, v := range values {
		if v > 0 {
			cs = append(cs, Contribution{Index: i, Value: v})
		}
	}
	return Defect{Contributions: cs}
}

// Total returns the sum of all contributions.
func (d Defect) Total() float64 {
	var total float64
	for _, c := range d.Contributions {
		total += c.Value
	}
	return total
}

// Scaled multiplies every contribution by weight.
func (d Defect) Scaled(weight float64) Defect {
	out := Defect{Contributions: make([]Contribution, len(d.Contributions))}
	for i, c := range d.Contributions {
		out.Contributions[i] = Contribution{Index: c.Index, Value: c.Value * weight}
	}
	return out
}

// Weighted multiplies each contribution by the corresponding entry of
// weights, which must be aligned 1:1 with d.Contributions (not indexed
// by nucleotide position) — matching the reference's "can only apply
// weights equally" requirement.
func (d Defect) Weighted(weights []float64) (Defect, error) {
	if len(weights) != len(d.Contributions) {
		return Defect{}, fmt.Errorf("defect: weight count %d does not match contribution count %d", len(weights), len(d.Contributions))
	}
	out := Defect{Contributions: make([]Contribution, len(d.Contributions))}
	for i, c := range d.Contributions {
		out.Contributions[i] = Contribution{Index: c.Index, Value: c.Value * weights[i]}
	}
	return out, nil
}

// Reduced collapses repeated indices (e.g. a domain occurrence that is
// accumulated through several complex nucleotide positions onto one
// pool variable) into a single summed contribution per index.
func (d Defect) Reduced() Defect {
	sums := make(map[int]float64, len(d.Contributions))
	var order []int
	for _, c := range d.Contributions {
		if _, seen := sums[c.Index]; !seen {
			order = append(order, c.Index)
		}
		sums[c.Index] += c.Value
	}
	out := Defect{Contributions: make([]Contribution, 0, len(order))}
	for _, idx := range order {
		out.Contributions = append(out.Contributions, Contribution{Index: idx, Value: sums[idx]})
	}
	return out
}

// SampleNucleotides draws num distinct indices without replacement,
// weighted proportional to their contribution value. If num is at least
// the number of contributions, every contributing index is returned.
func (d Defect) SampleNucleotides(num int, rng *rand.Rand) []int {
	if num >= len(d.Contributions) {
		out := make([]int, len(d.Contributions))
		for i, c := range d.Contributions {
			out[i] = c.Index
		}
		return out
	}

	remaining := append([]Contribution(nil), d.Contributions...)
	sampled := make([]int, 0, num)
	for num > 0 && len(remaining) > 0 {
		var sum float64
		for _, c := range remaining {
			sum += c.Value
		}
		stop := rng.Float64() * sum
		var cumulative float64
		pick := len(remaining) - 1
		for i, c := range remaining {
			cumulative += c.Value
			if cumulative >= stop {
				pick = i
				break
			}
		}
		sampled = append(sampled, remaining[pick].Index)
		remaining = append(remaining[:pick], remaining[pick+1:]...)
		num--
	}
	return sampled
}

// NucleotideDefects computes the per-nucleotide defect of a complex at a
// given structural target: defect[i] = 1 - P(i, s[i]), where s[i] is i's
// target partner (i itself if the target leaves i unpaired). probs is
// indexed in the same complex-local coordinate space as structure.
func NucleotideDefects(probs [][]float64, structure *sequence.Structure) Defect {
	values := make([]float64, structure.Len())
	for i := range values {
		partner := structure.Pairs[i]
		values[i] = 1 - probs[i][partner]
	}
	return New(values)
}

// Project rewrites a complex-local Defect into the design's flat pool
// variable index space via toIndices (as returned by Complex.ToIndices),
// then reduces repeated indices (a pool variable can back more than one
// complex-local nucleotide position, e.g. through domain reuse).
func Project(d Defect, toIndices []int) Defect {
	out := Defect{Contributions: make([]Contribution, len(d.Contributions))}
	for i, c := range d.Contributions {
		out.Contributions[i] = Contribution{Index: toIndices[c.Index], Value: c.Value}
	}
	return out.Reduced()
}
