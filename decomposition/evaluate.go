package decomposition

import (
	"fmt"
	"math"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/thermo"
)

// Result is a node's evaluated log-partition-function and pair-probability
// matrix, both expressed in the node's own span-local coordinates (index k
// refers to span.Pos(k)).
type Result struct {
	LogPfunc float64
	Probs    [][]float64 // Probs[k][l], k != l is P(pair); Probs[k][k] is P(unpaired)
}

// Evaluator evaluates decomposition leaves against a full sequence,
// combining child results up an AND/OR tree per node.Kind.
type Evaluator struct {
	Engine   thermo.Engine
	Sequence []base.Base
	Model    thermo.Model
}

// Evaluate computes the Result for tree.Nodes[tree.Root], recursing down
// through every descendant. Leaves invoke the thermodynamic engine
// directly on their span's sub-sequence with their accumulated enforced
// pairs; AndSplit nodes combine exactly two children; OrSplit nodes
// combine two or more mutually exclusive alternatives.
func (e *Evaluator) Evaluate(tree *Tree) (Result, error) {
	return e.evaluateNode(tree, tree.Root)
}

func (e *Evaluator) evaluateNode(tree *Tree, idx int) (Result, error) {
	node := tree.Nodes[idx]
	switch node.Kind {
	case Leaf:
		return e.evaluateLeaf(node)
	case AndSplit:
		return e.evaluateAnd(tree, node)
	case OrSplit:
		return e.evaluateOr(tree, node)
	default:
		return Result{}, fmt.Errorf("decomposition: unknown node kind %v", node.Kind)
	}
}

func (e *Evaluator) evaluateLeaf(node Node) (Result, error) {
	span := node.Span
	sub := make([]base.Base, span.Count)
	for k := 0; k < span.Count; k++ {
		sub[k] = e.Sequence[span.Pos(k)]
	}
	localEnforced := localizePairs(span, node.EnforcedPairs)

	lp, err := e.Engine.LogPfunc(sub, localEnforced, e.Model)
	if err != nil {
		return Result{}, fmt.Errorf("decomposition: leaf evaluation failed: %w", err)
	}
	probs, err := e.Engine.PairProbabilities(sub, localEnforced, e.Model)
	if err != nil {
		return Result{}, fmt.Errorf("decomposition: leaf probability evaluation failed: %w", err)
	}
	return Result{LogPfunc: lp, Probs: probs}, nil
}

// localizePairs restricts enforced to pairs whose endpoints both fall
// within span and rewrites them in span-local coordinates; a leaf's
// sub-sequence only knows about pairs internal to its own span, not
// ancestor pairs that live in outer spans.
func localizePairs(span Span, enforced []thermo.Pair) []thermo.Pair {
	var local []thermo.Pair
	for _, p := range enforced {
		ki, kj := span.relative(p.I), span.relative(p.J)
		if ki < 0 || kj < 0 {
			continue
		}
		local = append(local, thermo.Pair{I: ki, J: kj})
	}
	return local
}

// evaluateAnd combines a pair-split node's two children. Each child was
// evaluated with the split pair enforced, so the structures it counts
// already include that pair; the parent partition function is the plain
// product of the two children's partition functions (a sum in log
// space), with no separate factor for the split pair. The children's
// probability matrices are mapped back into the parent's coordinates and
// the split pair itself is marked paired with probability 1.
func (e *Evaluator) evaluateAnd(tree *Tree, node Node) (Result, error) {
	if len(node.Children) != 2 {
		return Result{}, fmt.Errorf("decomposition: AndSplit node has %d children, want 2", len(node.Children))
	}
	inner, err := e.evaluateNode(tree, node.Children[0])
	if err != nil {
		return Result{}, err
	}
	outer, err := e.evaluateNode(tree, node.Children[1])
	if err != nil {
		return Result{}, err
	}

	innerSpan := tree.Nodes[node.Children[0]].Span
	outerSpan := tree.Nodes[node.Children[1]].Span

	merged := Result{
		LogPfunc: inner.LogPfunc + outer.LogPfunc,
		Probs:    newProbMatrix(node.Span.Count),
	}
	placeChild(merged.Probs, node.Span, innerSpan, inner.Probs)
	placeChild(merged.Probs, node.Span, outerSpan, outer.Probs)

	ki, kj := node.Span.relative(node.SplitPair.I), node.Span.relative(node.SplitPair.J)
	if ki >= 0 && kj >= 0 {
		merged.Probs[ki][kj] = 1
		merged.Probs[kj][ki] = 1
		merged.Probs[ki][ki] = 0
		merged.Probs[kj][kj] = 0
	}
	return merged, nil
}

func newProbMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

// placeChild copies a child's span-local probability matrix into the
// parent's matrix, translating indices from the child's coordinate
// system into the parent's.
func placeChild(parent [][]float64, parentSpan, childSpan Span, childProbs [][]float64) {
	for k := 0; k < childSpan.Count; k++ {
		pk := parentSpan.relative(childSpan.Pos(k))
		if pk < 0 {
			continue
		}
		for l := 0; l < childSpan.Count; l++ {
			pl := parentSpan.relative(childSpan.Pos(l))
			if pl < 0 {
				continue
			}
			parent[pk][pl] = childProbs[k][l]
		}
	}
}

// evaluateOr combines mutually exclusive alternative branches: the
// parent partition function is their sum (a union over disjoint
// ensembles), and the parent pair-probability matrix is the
// partition-function-weighted average of each branch's matrix. The sum
// is taken in log space as a log-sum-exp shifted by the largest branch
// log partition function.
func (e *Evaluator) evaluateOr(tree *Tree, node Node) (Result, error) {
	if len(node.Children) < 2 {
		return Result{}, fmt.Errorf("decomposition: OrSplit node has %d children, want >= 2", len(node.Children))
	}
	branches := make([]Result, len(node.Children))
	for i, c := range node.Children {
		r, err := e.evaluateNode(tree, c)
		if err != nil {
			return Result{}, err
		}
		branches[i] = r
	}

	maxLog := branches[0].LogPfunc
	for _, b := range branches[1:] {
		if b.LogPfunc > maxLog {
			maxLog = b.LogPfunc
		}
	}
	var weightSum float64
	weights := make([]float64, len(branches))
	for i, b := range branches {
		w := math.Exp(b.LogPfunc - maxLog)
		weights[i] = w
		weightSum += w
	}

	probs := newProbMatrix(node.Span.Count)
	for i, b := range branches {
		w := weights[i] / weightSum
		for k := range probs {
			for l := range probs[k] {
				probs[k][l] += w * b.Probs[k][l]
			}
		}
	}
	return Result{LogPfunc: maxLog + math.Log(weightSum), Probs: probs}, nil
}
