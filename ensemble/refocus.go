package ensemble

import (
	"fmt"
	"math"
	"sort"
)

// LogPfuncFunc returns complex i's log partition function at the current
// sequence assignment. When active is true the caller is expected to
// return a true full-depth evaluation; when false, a cheap proxy is
// acceptable and expected — the reference implementation sums each
// strand's independent (unpaired) log partition function, treating a
// passive complex as if its strands never interacted.
type LogPfuncFunc func(complexIndex int, active bool) (float64, error)

// DefectFunc evaluates the design's normalized defect under a candidate
// partition, at whatever depth the caller deems appropriate for refocus
// trial evaluation (the full ensemble evaluated through the current
// partition, at whatever depth the caller names as the root depth).
type DefectFunc func(Partition) (float64, error)

// Inputs bundles everything Refocus needs from the surrounding design.
type Inputs struct {
	Partition Partition
	// TubeMembers lists, per tube, the complex indices that participate in
	// that tube's ensemble (on-target entries plus every off-target
	// complex sharing the tube's strand universe). A complex may appear in
	// more than one tube.
	TubeMembers [][]int
	LogPfunc    LogPfuncFunc
	Defect      DefectFunc
	FRefocus    float64
}

// Outcome is the result of one Refocus call.
type Outcome struct {
	Partition Partition
	Activated []int // complex indices newly promoted from passive to active
	Converged bool  // true if the first candidate promotion already satisfied the stop condition
}

// Refocus implements the predict-and-test promotion procedure: grounded
// on the original design core's sum_pf_refocus (the single-strand proxy
// variant, preferred there over a length-regression predictor because
// this module's thermo.Engine already evaluates small ensembles directly
// rather than needing to extrapolate from a fit):
//
//  1. Approximate every passive complex's log partition function via
//     in.LogPfunc(i, false) and estimate each one's fractional share of its
//     tube(s)' predicted ensemble, by a softmax over each tube's member log
//     partition functions.
//  2. Visit passive complexes in descending fractional-share order,
//     promoting one at a time into a candidate partition and evaluating
//     the design's normalized defect under it.
//  3. Stop as soon as the relative increase in defect from the previous
//     candidate falls below FRefocus.
//  4. Return the committed partition and the set of newly activated
//     complexes; the caller is responsible for triggering redecomposition
//     of those complexes and clearing mutation-failure memoization, since
//     both are design-level concerns outside this package.
func Refocus(in Inputs) (Outcome, error) {
	if in.Partition.AllActive() {
		return Outcome{Partition: in.Partition, Converged: true}, nil
	}

	n := len(in.Partition.Active)
	logPfunc := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := in.LogPfunc(i, in.Partition.IsActive(i))
		if err != nil {
			return Outcome{}, fmt.Errorf("ensemble: log partition function for complex %d: %w", i, err)
		}
		logPfunc[i] = v
	}

	share := make([]float64, n)
	for _, members := range in.TubeMembers {
		weights := softmax(members, logPfunc)
		for k, idx := range members {
			if !in.Partition.IsActive(idx) {
				share[idx] += weights[k]
			}
		}
	}

	type candidate struct {
		index int
		share float64
	}
	var passive []candidate
	for i, active := range in.Partition.Active {
		if !active {
			passive = append(passive, candidate{index: i, share: share[i]})
		}
	}
	sort.SliceStable(passive, func(a, b int) bool {
		if passive[a].share != passive[b].share {
			return passive[a].share > passive[b].share
		}
		return passive[a].index < passive[b].index
	})

	part := in.Partition.Clone()
	part.Active[passive[0].index] = true

	prev, err := in.Defect(in.Partition)
	if err != nil {
		return Outcome{}, fmt.Errorf("ensemble: evaluating defect under prior partition: %w", err)
	}
	estimate, err := in.Defect(part)
	if err != nil {
		return Outcome{}, fmt.Errorf("ensemble: evaluating defect under candidate partition: %w", err)
	}

	condition := func() bool { return relativeIncrease(prev, estimate) < in.FRefocus }
	firstConverged := condition()
	converged := firstConverged

	for cur := 1; cur < len(passive) && !converged; cur++ {
		part.Active[passive[cur].index] = true
		prev = estimate
		estimate, err = in.Defect(part)
		if err != nil {
			return Outcome{}, fmt.Errorf("ensemble: evaluating defect under candidate partition: %w", err)
		}
		converged = condition()
	}

	return Outcome{
		Partition: part,
		Activated: part.Activated(in.Partition),
		Converged: firstConverged,
	}, nil
}

// relativeIncrease computes (estimate-prev)/prev, treating a previously
// zero defect as already converged (nothing left to lose) unless the
// estimate is itself strictly positive, in which case the increase is
// reported as unbounded so refocus keeps promoting.
func relativeIncrease(prev, estimate float64) float64 {
	if prev == 0 {
		if estimate == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (estimate - prev) / prev
}

// softmax returns normalized Boltzmann weights over logPfunc[members],
// numerically stabilized by subtracting the maximum value in the group.
func softmax(members []int, logPfunc []float64) []float64 {
	weights := make([]float64, len(members))
	if len(members) == 0 {
		return weights
	}
	max := logPfunc[members[0]]
	for _, idx := range members[1:] {
		if logPfunc[idx] > max {
			max = logPfunc[idx]
		}
	}
	var sum float64
	for k, idx := range members {
		w := math.Exp(logPfunc[idx] - max)
		weights[k] = w
		sum += w
	}
	if sum == 0 {
		return weights
	}
	for k := range weights {
		weights[k] /= sum
	}
	return weights
}
