package design

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/decomposition"
	"github.com/TimothyStiles/nupack/defect"
	"github.com/TimothyStiles/nupack/ensemble"
	"github.com/TimothyStiles/nupack/optimizer"
)

// complexContext bundles the per-complex state the leaf/forest hooks
// close over: the decomposition tree, the mapping from the complex's
// own (local) nucleotide coordinates to the pool's flat variable
// indices, the shared, mutable variable assignment every hook reads
// and writes through, and the context the optimizer loop polls between
// leaf evaluations so a long-running forest pass still notices
// cancellation or timeout promptly.
type complexContext struct {
	ctx       context.Context
	design    *Design
	index     int
	tree      *decomposition.Tree
	toIndices []int
	vars      *[]base.Base
	rng       *rand.Rand
}

// optimizeComplex runs one OptimizeForest pass over complex idx's
// decomposition tree, mutating *vars in place as leaves accept
// improving mutations.
func (d *Design) optimizeComplex(ctx context.Context, idx int, vars *[]base.Base, rng *rand.Rand, limits optimizer.Limits, fStop float64) (optimizer.ForestOutcome, error) {
	if err := checkContext(ctx); err != nil {
		return optimizer.ForestOutcome{}, err
	}
	c := d.complexes[idx]
	tree := d.trees[idx]
	if tree == nil {
		return optimizer.ForestOutcome{}, fmt.Errorf("design: complex %q has no decomposition tree", c.Name)
	}
	toIndices, err := c.ToIndices(d.pool)
	if err != nil {
		return optimizer.ForestOutcome{}, fmt.Errorf("design: complex %q: %w", c.Name, err)
	}
	cctx := &complexContext{ctx: ctx, design: d, index: idx, tree: tree, toIndices: toIndices, vars: vars, rng: rng}

	hooks := optimizer.ForestHooks{
		LeafHooks: func(nodeIndex int) optimizer.Hooks {
			return cctx.leafHooks(nodeIndex, limits)
		},
		EvaluateNodeAtDepth1: func(nodeIndex int) ([]float64, error) {
			return cctx.evaluateNode(nodeIndex)
		},
		EvaluateRootFull: func() ([]float64, error) {
			_, probs, err := d.evaluateComplex(ctx, idx, *vars, Full)
			if err != nil {
				return nil, err
			}
			nd := defect.NucleotideDefects(probs, c.Target.Structure)
			return []float64{nd.Total()}, nil
		},
	}
	return optimizer.OptimizeForest(tree, hooks, limits, fStop)
}

// evaluateNode evaluates the subtree rooted at nodeIndex within cc's
// full tree (its children, already optimized, are visible through the
// current shared variable assignment) and returns its structural defect
// total as a single-element objective vector.
func (cc *complexContext) evaluateNode(nodeIndex int) ([]float64, error) {
	if err := checkContext(cc.ctx); err != nil {
		return nil, err
	}
	d := cc.design
	c := d.complexes[cc.index]
	model, err := d.models.Resolve(c.Target.Model)
	if err != nil {
		return nil, err
	}
	seq, err := c.NickSequence(d.pool, *cc.vars)
	if err != nil {
		return nil, err
	}
	sub := &decomposition.Tree{Nodes: cc.tree.Nodes, Root: nodeIndex, N: cc.tree.N}
	ev := decomposition.Evaluator{Engine: d.engine, Sequence: seq, Model: model}
	res, err := ev.Evaluate(sub)
	if err != nil {
		return nil, err
	}
	values := localDefect(res.Probs, c.Target.Structure.Pairs, cc.tree.Nodes[nodeIndex].Span)
	var total float64
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	return []float64{total}, nil
}

// localDefect computes, for every position in span, its structural
// defect 1-P(paired-as-targeted), trusting the decomposition invariant
// that a valid span's positions always pair (per the target structure)
// with partners inside the same span.
func localDefect(probs [][]float64, structurePairs []int, span decomposition.Span) []float64 {
	values := make([]float64, span.Count)
	for k := 0; k < span.Count; k++ {
		global := span.Pos(k)
		partnerGlobal := structurePairs[global]
		pl := spanRelative(span, partnerGlobal)
		if pl < 0 {
			pl = k // defensive: target partner split elsewhere; treat as unpaired locally
		}
		values[k] = 1 - probs[k][pl]
	}
	return values
}

// leafHooks builds the optimizer.Hooks for the leaf at nodeIndex.
func (cc *complexContext) leafHooks(nodeIndex int, limits optimizer.Limits) optimizer.Hooks {
	d := cc.design
	c := d.complexes[cc.index]
	node := cc.tree.Nodes[nodeIndex]
	span := node.Span
	flatPositions := make([]int, span.Count)
	for k := 0; k < span.Count; k++ {
		flatPositions[k] = cc.toIndices[span.Pos(k)]
	}

	var lastDefect defect.Defect

	evaluate := func() ([]float64, error) {
		if err := checkContext(cc.ctx); err != nil {
			return nil, err
		}
		model, err := d.models.Resolve(c.Target.Model)
		if err != nil {
			return nil, err
		}
		seq, err := c.NickSequence(d.pool, *cc.vars)
		if err != nil {
			return nil, err
		}
		leafTree := &decomposition.Tree{
			Nodes: []decomposition.Node{{Kind: decomposition.Leaf, Span: span, EnforcedPairs: node.EnforcedPairs}},
			Root:  0, N: cc.tree.N,
		}
		ev := decomposition.Evaluator{Engine: d.engine, Sequence: seq, Model: model}
		res, err := ev.Evaluate(leafTree)
		if err != nil {
			return nil, err
		}
		values := localDefect(res.Probs, c.Target.Structure.Pairs, span)
		lastDefect = defect.New(values)
		return []float64{lastDefect.Total()}, nil
	}

	mutate := func(positions []int) (func(), error) {
		flat := make([]int, len(positions))
		for i, p := range positions {
			flat[i] = flatPositions[p]
		}
		old := append([]base.Base(nil), *cc.vars...)
		newVars, err := d.problem.Mutate(*cc.vars, flat, cc.rng)
		if err != nil {
			return nil, err
		}
		*cc.vars = newVars
		return func() { *cc.vars = old }, nil
	}

	return optimizer.Hooks{
		Evaluate: evaluate,
		Sample: func(k int) ([]int, error) {
			return optimizer.SamplePositions(optimizer.StochasticHierarchical, []defect.Defect{lastDefect}, nil, span.Count, k, cc.rng)
		},
		Mutate: mutate,
		Reseed: func() error {
			_, err := mutate(allLocalPositions(span.Count))
			return err
		},
		Redecompose: func() error {
			probs, err := cc.currentProbs(span, node)
			if err != nil {
				return err
			}
			decomposition.BuildProbabilistic(cc.tree, nodeIndex, probs, c.Params)
			return nil
		},
	}
}

// spanRelative mirrors decomposition.Span's own (unexported) relative
// index arithmetic: the 0-based offset of absolute position pos within
// span, or -1 if pos does not lie within it.
func spanRelative(span decomposition.Span, pos int) int {
	r := ((pos-span.Start)%span.N + span.N) % span.N
	if r >= span.Count {
		return -1
	}
	return r
}

func allLocalPositions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// currentProbs re-evaluates the leaf's pair-probability matrix for use
// by BuildProbabilistic's redecomposition.
func (cc *complexContext) currentProbs(span decomposition.Span, node decomposition.Node) ([][]float64, error) {
	d := cc.design
	c := d.complexes[cc.index]
	model, err := d.models.Resolve(c.Target.Model)
	if err != nil {
		return nil, err
	}
	seq, err := c.NickSequence(d.pool, *cc.vars)
	if err != nil {
		return nil, err
	}
	leafTree := &decomposition.Tree{
		Nodes: []decomposition.Node{{Kind: decomposition.Leaf, Span: span, EnforcedPairs: node.EnforcedPairs}},
		Root:  0, N: cc.tree.N,
	}
	ev := decomposition.Evaluator{Engine: d.engine, Sequence: seq, Model: model}
	res, err := ev.Evaluate(leafTree)
	if err != nil {
		return nil, err
	}
	return res.Probs, nil
}

// refocus runs one ensemble-partition refocus pass at the design level,
// promoting passive off-target complexes into active scoring when they
// come to dominate a tube's predicted defect.
func (d *Design) refocus(ctx context.Context, vars []base.Base, partition ensemble.Partition, fRefocus float64) (ensemble.Outcome, error) {
	if err := checkContext(ctx); err != nil {
		return ensemble.Outcome{}, err
	}
	in := ensemble.Inputs{
		Partition:   partition,
		TubeMembers: d.tubeMembers,
		FRefocus:    fRefocus,
		LogPfunc: func(complexIndex int, active bool) (float64, error) {
			depth := Estimate
			if active {
				depth = Full
			}
			lp, _, err := d.evaluateComplex(ctx, complexIndex, vars, depth)
			return lp, err
		},
		Defect: func(p ensemble.Partition) (float64, error) {
			activeBools := make([]bool, len(d.complexes))
			copy(activeBools, p.Active)
			return d.normalizedDefect(ctx, vars, Estimate, activeBools)
		},
	}
	return ensemble.Refocus(in)
}
