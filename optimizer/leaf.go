// Package optimizer runs the mutate/evaluate/accept loop over a single
// leaf sub-sequence and the depth-first propagation of accepted sequences
// up a decomposition tree. It never touches thermodynamics, constraints,
// or storage directly: every effectful step is a caller-supplied hook, so
// this package stays an orchestration layer over whatever evaluator,
// mutator, and tree the caller (package design) wires in.
package optimizer

import "fmt"

// Hooks are the effectful operations OptimizeLeaf drives. All of them
// operate on sequence state the caller owns; Mutate's rollback closure is
// the only way OptimizeLeaf ever reverts a change.
type Hooks struct {
	// Evaluate returns the leaf's current objective totals (one value per
	// weighted sub-objective/tube the leaf contributes to).
	Evaluate func() ([]float64, error)
	// Sample chooses k nucleotide positions to mutate.
	Sample func(k int) ([]int, error)
	// Mutate attempts a constraint-satisfying reassignment of positions
	// in place. On success it returns a rollback closure that undoes the
	// change; on failure (the mutator exhausted its retry budget) it
	// returns a non-nil error and must leave sequence state untouched.
	Mutate func(positions []int) (rollback func(), err error)
	// Reseed replaces the leaf's sequence with a fresh constrained random
	// assignment.
	Reseed func() error
	// Redecompose probability-redecomposes the leaf's enclosing complex.
	Redecompose func() error
}

// Limits are the optimizer's hyperparameters.
type Limits struct {
	MBad          int     // bad_streak trigger: rejections since last accept
	MReseed       int     // no_improve trigger: accepts that didn't beat best
	MReopt        int     // reopt_streak trigger: reseeds without improving best
	FStop         float64 // absolute objective tolerance to stop at
	K             int     // nucleotide positions sampled per mutation attempt
	MaxIterations int     // bounded-iteration stop when no improvement is expected
}

// LeafResult summarizes one OptimizeLeaf run.
type LeafResult struct {
	Best             []float64
	Iterations       int
	Reseeds          int
	Redecompositions int
	Converged        bool // objective reached FStop
}

// OptimizeLeaf iterates the leaf objective: evaluate, sample positions
// from the current defect contributions, propose a mutation, and accept
// it only if it strictly Pareto-dominates the pre-mutation objective.
// Three escape counters drive the triggers: bad_streak (consecutive
// rejections) reseeds the leaf at MBad; no_improve (accepts that didn't
// beat the recorded best) reseeds at MReseed and counts toward
// reopt_streak; reopt_streak (reseeds since the last improvement to
// best) redecomposes the enclosing complex at MReopt. The loop stops
// early once the objective total is at or below FStop, or after
// MaxIterations with no further improvement expected.
func OptimizeLeaf(hooks Hooks, limits Limits) (LeafResult, error) {
	current, err := hooks.Evaluate()
	if err != nil {
		return LeafResult{}, fmt.Errorf("optimizer: initial leaf evaluation: %w", err)
	}
	best := append([]float64(nil), current...)

	var badStreak, noImprove, reoptStreak int
	var reseeds, redecompositions int

	result := func(converged bool, iterations int) LeafResult {
		return LeafResult{
			Best:             best,
			Iterations:       iterations,
			Reseeds:          reseeds,
			Redecompositions: redecompositions,
			Converged:        converged,
		}
	}

	if total(current) <= limits.FStop {
		return result(true, 0), nil
	}

	for iter := 1; iter <= limits.MaxIterations; iter++ {
		positions, err := hooks.Sample(limits.K)
		if err != nil {
			return LeafResult{}, fmt.Errorf("optimizer: sampling mutation positions: %w", err)
		}

		rollback, err := hooks.Mutate(positions)
		if err != nil {
			badStreak++
		} else {
			candidate, err := hooks.Evaluate()
			if err != nil {
				return LeafResult{}, fmt.Errorf("optimizer: evaluating mutated leaf: %w", err)
			}
			if dominates(candidate, current) {
				current = candidate
				badStreak = 0
				if total(candidate) < total(best) {
					best = candidate
					reoptStreak = 0
					noImprove = 0
				} else {
					noImprove++
				}
			} else {
				rollback()
				badStreak++
			}
		}

		if total(current) <= limits.FStop {
			return result(true, iter), nil
		}

		if limits.MBad > 0 && badStreak >= limits.MBad {
			if err := hooks.Reseed(); err != nil {
				return LeafResult{}, fmt.Errorf("optimizer: reseeding leaf (bad_streak): %w", err)
			}
			badStreak = 0
			reseeds++
			if current, err = hooks.Evaluate(); err != nil {
				return LeafResult{}, fmt.Errorf("optimizer: evaluating reseeded leaf: %w", err)
			}
		}

		if limits.MReseed > 0 && noImprove >= limits.MReseed {
			if err := hooks.Reseed(); err != nil {
				return LeafResult{}, fmt.Errorf("optimizer: reseeding leaf (no_improve): %w", err)
			}
			noImprove = 0
			reoptStreak++
			reseeds++
			if current, err = hooks.Evaluate(); err != nil {
				return LeafResult{}, fmt.Errorf("optimizer: evaluating reseeded leaf: %w", err)
			}
		}

		if limits.MReopt > 0 && reoptStreak >= limits.MReopt {
			if err := hooks.Redecompose(); err != nil {
				return LeafResult{}, fmt.Errorf("optimizer: redecomposing enclosing complex: %w", err)
			}
			reoptStreak = 0
			redecompositions++
			if current, err = hooks.Evaluate(); err != nil {
				return LeafResult{}, fmt.Errorf("optimizer: evaluating redecomposed leaf: %w", err)
			}
		}
	}

	return result(false, limits.MaxIterations), nil
}

// dominates reports whether a Pareto-dominates b: no worse in any
// objective and strictly better in at least one.
func dominates(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	strictlyBetter := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

func total(totals []float64) float64 {
	var sum float64
	for _, v := range totals {
		sum += v
	}
	return sum
}
