package decomposition

import (
	"math"
	"testing"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/sequence"
	"github.com/TimothyStiles/nupack/thermo"
)

func hairpinStructure(t *testing.T) *sequence.Structure {
	t.Helper()
	// A 20nt hairpin: 2nt flanks, a 5bp stem, a 6nt loop, a 5bp stem, 2nt
	// flanks. Only the stem's middle pair (4,15) has 3-pair helix padding
	// on both sides, so it is the unique legal structural split point
	// against DefaultDecompositionParameters (MinHelix=3).
	pairs := []int{
		0, 1, 17, 16, 15, 14, 13, 7, 8, 9,
		10, 11, 12, 6, 5, 4, 3, 2, 18, 19,
	}
	st, err := sequence.NewStructure(pairs, nil)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestSplitSpanPartitionsCircularly(t *testing.T) {
	span := Span{Start: 0, Count: 20, N: 20}
	inner, outer := splitSpan(span, 0, 19)
	if inner.Count != 20 || outer.Count != 2 {
		t.Errorf("splitSpan(0,19) = inner %d outer %d, want inner 20 outer 2", inner.Count, outer.Count)
	}
	// inner and outer both contain the two endpoints
	if inner.relative(0) < 0 || inner.relative(19) < 0 {
		t.Error("inner span should contain both split endpoints")
	}
	if outer.relative(0) < 0 || outer.relative(19) < 0 {
		t.Error("outer span should contain both split endpoints")
	}
}

func TestBuildStructuralProducesAndSplit(t *testing.T) {
	st := hairpinStructure(t)
	params := sequence.DefaultDecompositionParameters()
	params.MinSize = 3
	tree := BuildStructural(st, params)
	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}
	root := tree.Nodes[tree.Root]
	if root.Kind != AndSplit {
		t.Fatalf("root kind = %v, want AndSplit", root.Kind)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}
}

func TestBuildStructuralLeafWhenNoSplit(t *testing.T) {
	// An unstructured 5nt complex (fully unpaired) has no split point.
	pairs := []int{0, 1, 2, 3, 4}
	st, err := sequence.NewStructure(pairs, nil)
	if err != nil {
		t.Fatal(err)
	}
	tree := BuildStructural(st, sequence.DefaultDecompositionParameters())
	if tree.Nodes[tree.Root].Kind != Leaf {
		t.Errorf("expected a Leaf root for an unpaired structure, got %v", tree.Nodes[tree.Root].Kind)
	}
}

func TestEvaluateLeafMatchesDirectEngineCall(t *testing.T) {
	seq, err := base.ParseSequence("GGGGAAAACCCC")
	if err != nil {
		t.Fatal(err)
	}
	m, err := thermo.ParseModel("rna37")
	if err != nil {
		t.Fatal(err)
	}
	engine := thermo.NewDefaultEngine()
	want, err := engine.LogPfunc(seq, nil, m)
	if err != nil {
		t.Fatal(err)
	}

	tree := &Tree{N: len(seq)}
	tree.Root = tree.addNode(Node{Kind: Leaf, Span: Span{Start: 0, Count: len(seq), N: len(seq)}})
	ev := &Evaluator{Engine: engine, Sequence: seq, Model: m}
	got, err := ev.Evaluate(tree)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got.LogPfunc-want) > 1e-9 {
		t.Errorf("leaf LogPfunc = %v, want %v", got.LogPfunc, want)
	}
}

func TestEvaluateAndSplitCombinesChildren(t *testing.T) {
	seq, err := base.ParseSequence("GGGGAAAACCCC")
	if err != nil {
		t.Fatal(err)
	}
	m, err := thermo.ParseModel("rna37")
	if err != nil {
		t.Fatal(err)
	}
	engine := thermo.NewDefaultEngine()
	n := len(seq)

	tree := &Tree{N: n}
	inner := tree.addNode(Node{
		Kind: Leaf, Span: Span{Start: 0, Count: n, N: n},
		EnforcedPairs: []thermo.Pair{{I: 0, J: n - 1}},
	})
	outer := tree.addNode(Node{
		Kind: Leaf, Span: Span{Start: n - 1, Count: 2, N: n},
		EnforcedPairs: []thermo.Pair{{I: 0, J: n - 1}},
	})
	tree.Root = tree.addNode(Node{
		Kind: AndSplit, Span: Span{Start: 0, Count: n, N: n},
		SplitPair: thermo.Pair{I: 0, J: n - 1},
		Children:  []int{inner, outer},
	})

	ev := &Evaluator{Engine: engine, Sequence: seq, Model: m}
	result, err := ev.Evaluate(tree)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(result.LogPfunc) || math.IsInf(result.LogPfunc, 0) {
		t.Fatalf("combined LogPfunc is non-finite: %v", result.LogPfunc)
	}
	if result.Probs[0][n-1] != 1 {
		t.Errorf("split pair (0,%d) should be probability 1 in the merged result, got %v", n-1, result.Probs[0][n-1])
	}
}

func TestEvaluateOrSplitWeightsByPartitionFunction(t *testing.T) {
	seq, err := base.ParseSequence("GGGGAAAACCCC")
	if err != nil {
		t.Fatal(err)
	}
	m, err := thermo.ParseModel("rna37")
	if err != nil {
		t.Fatal(err)
	}
	engine := thermo.NewDefaultEngine()
	n := len(seq)

	tree := &Tree{N: n}
	branchA := tree.addNode(Node{Kind: Leaf, Span: Span{Start: 0, Count: n, N: n}, EnforcedPairs: []thermo.Pair{{I: 0, J: n - 1}}})
	branchB := tree.addNode(Node{Kind: Leaf, Span: Span{Start: 0, Count: n, N: n}, EnforcedPairs: []thermo.Pair{{I: 1, J: n - 2}}})
	tree.Root = tree.addNode(Node{Kind: OrSplit, Span: Span{Start: 0, Count: n, N: n}, Children: []int{branchA, branchB}})

	ev := &Evaluator{Engine: engine, Sequence: seq, Model: m}
	result, err := ev.Evaluate(tree)
	if err != nil {
		t.Fatal(err)
	}

	lpA, err := engine.LogPfunc(seq, []thermo.Pair{{I: 0, J: n - 1}}, m)
	if err != nil {
		t.Fatal(err)
	}
	lpB, err := engine.LogPfunc(seq, []thermo.Pair{{I: 1, J: n - 2}}, m)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Log(math.Exp(lpA) + math.Exp(lpB))
	if math.Abs(result.LogPfunc-want) > 1e-6 {
		t.Errorf("OrSplit LogPfunc = %v, want %v", result.LogPfunc, want)
	}
}

func TestBuildProbabilisticStopsWhenNoLegalSplit(t *testing.T) {
	tree := &Tree{N: 4}
	idx := tree.addNode(Node{Kind: Leaf, Span: Span{Start: 0, Count: 4, N: 4}})
	probs := [][]float64{
		{0, 0.9, 0, 0},
		{0.9, 0, 0, 0},
		{0, 0, 0, 0.9},
		{0, 0, 0.9, 0},
	}
	params := sequence.DefaultDecompositionParameters() // MinSize=6 rejects every split in a 4nt span
	result := BuildProbabilistic(tree, idx, probs, params)
	if tree.Nodes[result].Kind != Leaf {
		t.Errorf("expected node to remain a Leaf when no split satisfies MinSize, got %v", tree.Nodes[result].Kind)
	}
}
