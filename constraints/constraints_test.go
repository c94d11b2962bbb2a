package constraints

import (
	"math/rand"
	"testing"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/sequence"
)

func buildHairpin(t *testing.T) (*sequence.Pool, *sequence.Complex) {
	t.Helper()
	pool := sequence.NewPool(false)
	if _, err := pool.AddDomain("a", "NNNN"); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.AddStrand("sa", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.AddStrand("sb", []string{"a*"}); err != nil {
		t.Fatal(err)
	}
	pairs := []int{7, 6, 5, 4, 3, 2, 1, 0}
	st, err := sequence.NewStructure(pairs, []int{3})
	if err != nil {
		t.Fatal(err)
	}
	c := &sequence.Complex{
		Name:    "hairpin",
		Strands: []string{"sa", "sb"},
		Target:  sequence.Target{Model: "rna37", Structure: st},
		Params:  sequence.DefaultDecompositionParameters(),
	}
	if err := c.Build(pool); err != nil {
		t.Fatal(err)
	}
	return pool, c
}

func TestInitializeSatisfiesStructure(t *testing.T) {
	pool, c := buildHairpin(t)
	prob, err := NewProblem(pool, []*sequence.Complex{c}, false)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	vars, err := prob.Initialize(rng)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := c.ResolveSequence(pool, vars)
	if err != nil {
		t.Fatal(err)
	}
	c.Target.Structure.ForEachPair(func(i, j int) {
		if !base.CanPair(seq[i], seq[j], false) {
			t.Errorf("positions %d,%d = %v,%v do not pair", i, j, seq[i], seq[j])
		}
	})
}

func TestMutatePreservesConstraints(t *testing.T) {
	pool, c := buildHairpin(t)
	prob, err := NewProblem(pool, []*sequence.Complex{c}, false)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(2))
	vars, err := prob.Initialize(rng)
	if err != nil {
		t.Fatal(err)
	}
	mutated, err := prob.Mutate(vars, []int{0}, rng)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := c.ResolveSequence(pool, mutated)
	if err != nil {
		t.Fatal(err)
	}
	c.Target.Structure.ForEachPair(func(i, j int) {
		if !base.CanPair(seq[i], seq[j], false) {
			t.Errorf("after mutation, positions %d,%d = %v,%v do not pair", i, j, seq[i], seq[j])
		}
	})
}

func TestForbiddenPatternRejected(t *testing.T) {
	pool := sequence.NewPool(false)
	pool.AddDomain("a", "NNNNNN")
	pool.AddStrand("sa", []string{"a"})
	prob, err := NewProblem(pool, nil, false, WithForbiddenPatterns([]string{"AAAA"}, false), WithMaxTries(200))
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		vars, err := prob.Initialize(rng)
		if err != nil {
			continue
		}
		seq, err := pool.StrandSequence("sa", vars)
		if err != nil {
			t.Fatal(err)
		}
		if prob.forbidden.MatchString(base.FormatSequence(seq)) {
			t.Errorf("forbidden pattern present in %q", base.FormatSequence(seq))
		}
	}
}
