package design

import (
	"fmt"

	"github.com/TimothyStiles/nupack/sequence"
)

// resolvedWeights holds, per on-target complex index, a per-nucleotide
// multiplier built up by applying every matching Weight in turn,
// following the reference controller's resolve_weights: complex-scoped
// weights (or the implicit "every on-target" scope) are applied first,
// copied into every tube that contains the complex, then tube-scoped
// weights are applied on top of that tube's copy.
//
// A complex that appears in more than one tube can therefore end up
// with a different multiplier vector per tube; perComplex holds the
// tube-independent base (before any tube-scoped weight), and perTube
// holds the tube-local refinement actually used during evaluation.
type resolvedWeights struct {
	perComplex map[int][]float64            // complex index -> per-position multiplier
	perTube    map[int]map[int][]float64     // tube index -> complex index -> per-position multiplier
}

// multiplierFor returns the multiplier vector to use for complex index
// within tube index tubeIndex (or the tube-independent vector if
// tubeIndex < 0, e.g. when a complex is evaluated outside any tube).
func (w *resolvedWeights) multiplierFor(tubeIndex, complexIndex int) []float64 {
	if tubeIndex >= 0 {
		if tw, ok := w.perTube[tubeIndex]; ok {
			if m, ok := tw[complexIndex]; ok {
				return m
			}
		}
	}
	return w.perComplex[complexIndex]
}

// resolveWeights mirrors Weights::resolve_weights: every on-target
// complex starts at multiplier 1 for each of its nucleotides;
// complex-scoped (and unscoped, meaning "every on-target") weights are
// applied first and copied into each tube that lists the complex as a
// target, then tube-scoped weights are applied to that tube's copy.
func resolveWeights(pool *sequence.Pool, complexes []*sequence.Complex, tubes []sequence.Tube, weightSpecs []sequence.Weight) (*resolvedWeights, error) {
	perComplex := make(map[int][]float64)
	reversed := make(map[int]reversedComplex)
	for i, c := range complexes {
		if !c.IsOnTarget() {
			continue
		}
		perComplex[i] = onesVector(c.Length)
		reversed[i] = reversedComplex{
			strands: c.PositionStrandNames(),
			domains: c.PositionDomainNames(),
		}
	}

	var tubeSpecific, complexSpecific []sequence.Weight
	for _, w := range weightSpecs {
		if w.Tube != nil {
			tubeSpecific = append(tubeSpecific, w)
		} else {
			complexSpecific = append(complexSpecific, w)
		}
	}

	onTargets := make([]int, 0, len(perComplex))
	for i := range perComplex {
		onTargets = append(onTargets, i)
	}

	for _, w := range complexSpecific {
		targets, err := resolveComplexScope(w, complexes, onTargets)
		if err != nil {
			return nil, err
		}
		for _, idx := range targets {
			if err := applyWeight(perComplex[idx], reversed[idx], w); err != nil {
				return nil, err
			}
		}
	}

	perTube := make(map[int]map[int][]float64, len(tubes))
	for t, tube := range tubes {
		tubeComplexes := make(map[int][]float64)
		for _, e := range tube.Entries {
			if vec, ok := perComplex[e.ComplexIndex]; ok {
				tubeComplexes[e.ComplexIndex] = append([]float64(nil), vec...)
			}
		}
		perTube[t] = tubeComplexes
	}

	for _, w := range tubeSpecific {
		tubeIndex, err := findTube(*w.Tube, tubes)
		if err != nil {
			return nil, err
		}
		tubeOnTargets := make([]int, 0, len(perTube[tubeIndex]))
		for idx := range perTube[tubeIndex] {
			tubeOnTargets = append(tubeOnTargets, idx)
		}
		targets, err := resolveComplexScope(w, complexes, tubeOnTargets)
		if err != nil {
			return nil, err
		}
		for _, idx := range targets {
			if _, ok := perTube[tubeIndex][idx]; !ok {
				return nil, fmt.Errorf("design: weight scoped to tube %q and complex %q: complex is not an on-target member of that tube", *w.Tube, complexNameOf(w, complexes))
			}
			if err := applyWeight(perTube[tubeIndex][idx], reversed[idx], w); err != nil {
				return nil, err
			}
		}
	}

	return &resolvedWeights{perComplex: perComplex, perTube: perTube}, nil
}

type reversedComplex struct {
	strands []string
	domains []string
}

func onesVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func resolveComplexScope(w sequence.Weight, complexes []*sequence.Complex, defaultScope []int) ([]int, error) {
	if w.Complex == nil {
		return defaultScope, nil
	}
	idx, err := findComplex(*w.Complex, complexes)
	if err != nil {
		return nil, err
	}
	return []int{idx}, nil
}

// applyWeight multiplies every position of multiplier matching w's
// strand/domain scope (or all positions if neither is set) by w's
// multiplier, in place.
func applyWeight(multiplier []float64, rc reversedComplex, w sequence.Weight) error {
	if multiplier == nil {
		return fmt.Errorf("design: weight applies to a complex with no resolved multiplier vector")
	}
	for i := range multiplier {
		if w.Strand != nil && rc.strands[i] != *w.Strand {
			continue
		}
		if w.Domain != nil && rc.domains[i] != *w.Domain {
			continue
		}
		multiplier[i] *= w.Multiplier
	}
	return nil
}

func findComplex(name string, complexes []*sequence.Complex) (int, error) {
	for i, c := range complexes {
		if c.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("design: no complex named %q", name)
}

func findTube(name string, tubes []sequence.Tube) (int, error) {
	for i, t := range tubes {
		if t.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("design: no tube named %q", name)
}

func complexNameOf(w sequence.Weight, complexes []*sequence.Complex) string {
	if w.Complex == nil {
		return ""
	}
	return *w.Complex
}
