package design

import (
	"testing"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/sequence"
)

// buildDuplexSpec builds the smallest nontrivial design: two 8-nucleotide
// complementary domains A and A* forming strands S1 and S2, assembled
// into a single on-target duplex complex in one tube.
func buildDuplexSpec(t *testing.T) Spec {
	t.Helper()
	pool := sequence.NewPool(false)
	if _, err := pool.AddDomain("A", "NNNNNNNN"); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.AddStrand("S1", []string{"A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.AddStrand("S2", []string{"A*"}); err != nil {
		t.Fatal(err)
	}

	// fully paired 16-nucleotide duplex: position i pairs with 15-i.
	pairs := make([]int, 16)
	for i := range pairs {
		pairs[i] = 15 - i
	}
	st, err := sequence.NewStructure(pairs, []int{7})
	if err != nil {
		t.Fatal(err)
	}

	c := &sequence.Complex{
		Name:    "duplex",
		Strands: []string{"S1", "S2"},
		Target:  sequence.Target{Model: "rna37", Structure: st},
		Params:  sequence.DefaultDecompositionParameters(),
	}
	if err := c.Build(pool); err != nil {
		t.Fatal(err)
	}

	tube := sequence.Tube{Name: "tube1", Entries: []sequence.TubeEntry{{ComplexIndex: 0, TargetConc: 1e-7}}}

	return Spec{
		Pool:      pool,
		Complexes: []*sequence.Complex{c},
		Tubes:     []sequence.Tube{tube},
		CacheSize: 64,
	}
}

func TestNewDesignConstructsFromSpec(t *testing.T) {
	spec := buildDuplexSpec(t)
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	if d.NumComplexes() != 1 {
		t.Fatalf("NumComplexes() = %d, want 1", d.NumComplexes())
	}
	onTargets := d.OnTargetIndices()
	if len(onTargets) != 1 || onTargets[0] != 0 {
		t.Errorf("OnTargetIndices() = %v, want [0]", onTargets)
	}
	if d.trees[0] == nil {
		t.Error("expected a decomposition tree for the on-target complex")
	}
}

func TestNewDesignRejectsEmptyComplexList(t *testing.T) {
	spec := Spec{Pool: sequence.NewPool(false)}
	if _, err := NewDesign(spec); err == nil {
		t.Error("expected error for spec with no complexes")
	}
}

func TestResolveWeightsDefaultsToOnes(t *testing.T) {
	spec := buildDuplexSpec(t)
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	m := d.weights.multiplierFor(-1, 0)
	if len(m) != 16 {
		t.Fatalf("got %d multiplier entries, want 16", len(m))
	}
	for i, v := range m {
		if v != 1 {
			t.Errorf("multiplier[%d] = %v, want 1 (no weights specified)", i, v)
		}
	}
}

func TestResolveWeightsComplexScopeAppliesToWholeComplex(t *testing.T) {
	spec := buildDuplexSpec(t)
	w, err := sequence.NewWeight("", "duplex", "", "", 2.0)
	if err != nil {
		t.Fatal(err)
	}
	spec.Weights = []sequence.Weight{w}
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	m := d.weights.multiplierFor(-1, 0)
	for i, v := range m {
		if v != 2 {
			t.Errorf("multiplier[%d] = %v, want 2", i, v)
		}
	}
}

func TestResolveWeightsStrandScopeAppliesOnlyToThatStrand(t *testing.T) {
	spec := buildDuplexSpec(t)
	w, err := sequence.NewWeight("", "", "S2", "", 3.0)
	if err != nil {
		t.Fatal(err)
	}
	spec.Weights = []sequence.Weight{w}
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	m := d.weights.multiplierFor(-1, 0)
	// S1 occupies positions [0,8), S2 occupies positions [8,16).
	for i := 0; i < 8; i++ {
		if m[i] != 1 {
			t.Errorf("multiplier[%d] = %v, want 1 (strand S1 unweighted)", i, m[i])
		}
	}
	for i := 8; i < 16; i++ {
		if m[i] != 3 {
			t.Errorf("multiplier[%d] = %v, want 3 (strand S2 weighted)", i, m[i])
		}
	}
}

func TestResolveWeightsTubeScopeAppliesOnTopOfComplexScope(t *testing.T) {
	spec := buildDuplexSpec(t)
	complexWeight, err := sequence.NewWeight("", "duplex", "", "", 2.0)
	if err != nil {
		t.Fatal(err)
	}
	tubeWeight, err := sequence.NewWeight("tube1", "", "", "", 5.0)
	if err != nil {
		t.Fatal(err)
	}
	spec.Weights = []sequence.Weight{complexWeight, tubeWeight}
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	// tube-local multiplier should be 2*5 = 10; the complex-level (tube
	// independent) multiplier should remain just 2.
	tubeLocal := d.weights.multiplierFor(0, 0)
	for i, v := range tubeLocal {
		if v != 10 {
			t.Errorf("tube-local multiplier[%d] = %v, want 10", i, v)
		}
	}
	complexLevel := d.weights.multiplierFor(-1, 0)
	for i, v := range complexLevel {
		if v != 2 {
			t.Errorf("complex-level multiplier[%d] = %v, want 2", i, v)
		}
	}
}

func TestComplexInTubeAcceptsOnTargetMemberOnly(t *testing.T) {
	spec := buildDuplexSpec(t)
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	if !d.complexInTube(0, 0) {
		t.Error("expected on-target complex 0 to be a member of tube 0")
	}
}

func TestStrandCompositionCountsCopiesPerStrand(t *testing.T) {
	spec := buildDuplexSpec(t)
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	comp := d.strandComposition(0, 0)
	if len(comp) != 2 {
		t.Fatalf("got %d strand entries, want 2", len(comp))
	}
	for _, c := range comp {
		if c != 1 {
			t.Errorf("expected one copy of each strand in the duplex, got %v", comp)
		}
	}
}

func TestBuildResultResolvesStrandSequences(t *testing.T) {
	spec := buildDuplexSpec(t)
	d, err := NewDesign(spec)
	if err != nil {
		t.Fatal(err)
	}
	vars := make([]base.Base, d.pool.TotalLength())
	for i := range vars {
		vars[i] = base.A
	}
	result, err := d.buildResult(vars, []float64{0.1})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Strands) != 2 {
		t.Fatalf("got %d strands, want 2", len(result.Strands))
	}
	if result.Strands["S1"] != "AAAAAAAA" {
		t.Errorf("S1 = %q, want AAAAAAAA", result.Strands["S1"])
	}
	if len(result.TubeDefects) != 1 || result.TubeDefects[0] != 0.1 {
		t.Errorf("TubeDefects = %v, want [0.1]", result.TubeDefects)
	}
}
