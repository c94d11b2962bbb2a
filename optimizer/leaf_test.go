package optimizer

import "testing"

func TestOptimizeLeafStopsImmediatelyWhenAlreadyConverged(t *testing.T) {
	hooks := Hooks{
		Evaluate: func() ([]float64, error) { return []float64{0.001}, nil },
	}
	res, err := OptimizeLeaf(hooks, Limits{FStop: 0.01, MaxIterations: 10})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged || res.Iterations != 0 {
		t.Errorf("expected immediate convergence, got %+v", res)
	}
}

// TestOptimizeLeafAcceptsDominatingMutation drives a leaf whose objective
// strictly improves with every proposed mutation, until it converges.
func TestOptimizeLeafAcceptsDominatingMutation(t *testing.T) {
	current := []float64{1.0}
	step := 0
	hooks := Hooks{
		Evaluate: func() ([]float64, error) { return append([]float64(nil), current...), nil },
		Sample:   func(k int) ([]int, error) { return []int{0}, nil },
		Mutate: func(positions []int) (func(), error) {
			step++
			prev := current[0]
			current[0] -= 0.3
			return func() { current[0] = prev }, nil
		},
		Reseed:      func() error { return nil },
		Redecompose: func() error { return nil },
	}
	res, err := OptimizeLeaf(hooks, Limits{FStop: 0.2, K: 1, MaxIterations: 20})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence, got %+v (final current=%v)", res, current)
	}
	if res.Best[0] > 0.2 {
		t.Errorf("best = %v, want <= FStop 0.2", res.Best[0])
	}
}

// TestOptimizeLeafRejectsWorseMutationAndRollsBack checks that a
// non-dominating mutation is rejected and rolled back, leaving the
// objective unchanged across iterations (so bad_streak climbs to MBad
// and triggers a reseed).
func TestOptimizeLeafRejectsWorseMutationAndRollsBack(t *testing.T) {
	current := []float64{1.0}
	rolledBack := 0
	reseeds := 0
	hooks := Hooks{
		Evaluate: func() ([]float64, error) { return append([]float64(nil), current...), nil },
		Sample:   func(k int) ([]int, error) { return []int{0}, nil },
		Mutate: func(positions []int) (func(), error) {
			prev := current[0]
			current[0] += 0.5 // strictly worse
			return func() { current[0] = prev; rolledBack++ }, nil
		},
		Reseed: func() error {
			reseeds++
			current[0] = 1.0
			return nil
		},
		Redecompose: func() error { return nil },
	}
	res, err := OptimizeLeaf(hooks, Limits{FStop: 0.01, K: 1, MBad: 2, MaxIterations: 5})
	if err != nil {
		t.Fatal(err)
	}
	if rolledBack == 0 {
		t.Error("expected at least one rollback of a rejected mutation")
	}
	if res.Reseeds == 0 {
		t.Error("expected bad_streak to trigger at least one reseed")
	}
}

// TestOptimizeLeafContinuesAfterMutationFailure exercises the "mutator
// exhausted its retries" path: Mutate returns an error, badStreak climbs
// without a rollback call (there is nothing to roll back), and the leaf
// still proceeds to later iterations.
func TestOptimizeLeafContinuesAfterMutationFailure(t *testing.T) {
	attempts := 0
	hooks := Hooks{
		Evaluate: func() ([]float64, error) { return []float64{1.0}, nil },
		Sample:   func(k int) ([]int, error) { return []int{0}, nil },
		Mutate: func(positions []int) (func(), error) {
			attempts++
			return nil, errMutationFailed
		},
		Reseed:      func() error { return nil },
		Redecompose: func() error { return nil },
	}
	res, err := OptimizeLeaf(hooks, Limits{FStop: 0.01, K: 1, MBad: 3, MaxIterations: 3})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 mutation attempts (MaxIterations), got %d", attempts)
	}
	if res.Converged {
		t.Error("did not expect convergence: objective never improved")
	}
}

func TestDominatesRequiresStrictImprovementSomewhere(t *testing.T) {
	if dominates([]float64{1, 2}, []float64{1, 2}) {
		t.Error("identical vectors should not dominate")
	}
	if !dominates([]float64{1, 1}, []float64{1, 2}) {
		t.Error("expected {1,1} to dominate {1,2}")
	}
	if dominates([]float64{1, 3}, []float64{1, 2}) {
		t.Error("did not expect {1,3} to dominate {1,2}")
	}
}

var errMutationFailed = leafError("mutation exhausted retry budget")

type leafError string

func (e leafError) Error() string { return string(e) }
