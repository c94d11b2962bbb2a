package optimizer

import (
	"fmt"

	"github.com/TimothyStiles/nupack/decomposition"
)

// ForestHooks supplies the node-specific effectful operations
// OptimizeForest needs beyond what a single leaf optimizes.
type ForestHooks struct {
	// LeafHooks builds the Hooks for optimizing the leaf at nodeIndex.
	LeafHooks func(nodeIndex int) Hooks
	// EvaluateNodeAtDepth1 re-evaluates an internal node's objective
	// after its children have been optimized (propagation of accepted
	// sequences into the parent is implicit: every hook operates on the
	// same underlying shared sequence assignment, so a parent's
	// re-evaluation already sees every child's accepted mutations).
	EvaluateNodeAtDepth1 func(nodeIndex int) ([]float64, error)
	// EvaluateRootFull computes the whole design's depth-0 objective,
	// for comparison against the depth-1 estimate produced by the
	// traversal.
	EvaluateRootFull func() ([]float64, error)
}

// ForestOutcome is the result of one forest-optimization pass.
type ForestOutcome struct {
	LeafResults  map[int]LeafResult
	RootEstimate []float64
	RootFull     []float64
	NeedsRefocus bool
}

// OptimizeForest runs one depth-first pass over tree: leaves are
// optimized first via OptimizeLeaf, then every internal node is
// re-evaluated at depth 1 once its children are done, bottom-up to the
// root. At the root, the depth-0 ("full") objective is compared against
// the depth-1 estimate; if the full objective's total exceeds
// max(fStop, estimate total), NeedsRefocus is set so the caller can run
// an ensemble refocus pass and call OptimizeForest again — the outer
// retry loop is a design-level concern, not this package's.
func OptimizeForest(tree *decomposition.Tree, hooks ForestHooks, limits Limits, fStop float64) (ForestOutcome, error) {
	leafResults := make(map[int]LeafResult)

	var visit func(idx int) ([]float64, error)
	visit = func(idx int) ([]float64, error) {
		node := tree.Nodes[idx]
		if node.Kind == decomposition.Leaf {
			res, err := OptimizeLeaf(hooks.LeafHooks(idx), limits)
			if err != nil {
				return nil, fmt.Errorf("optimizer: optimizing leaf at node %d: %w", idx, err)
			}
			leafResults[idx] = res
			return res.Best, nil
		}
		for _, child := range node.Children {
			if _, err := visit(child); err != nil {
				return nil, err
			}
		}
		estimate, err := hooks.EvaluateNodeAtDepth1(idx)
		if err != nil {
			return nil, fmt.Errorf("optimizer: re-evaluating node %d: %w", idx, err)
		}
		return estimate, nil
	}

	estimate, err := visit(tree.Root)
	if err != nil {
		return ForestOutcome{}, err
	}
	full, err := hooks.EvaluateRootFull()
	if err != nil {
		return ForestOutcome{}, fmt.Errorf("optimizer: evaluating full root objective: %w", err)
	}

	stop := fStop
	if et := total(estimate); et > stop {
		stop = et
	}
	needsRefocus := total(full) > stop

	return ForestOutcome{
		LeafResults:  leafResults,
		RootEstimate: estimate,
		RootFull:     full,
		NeedsRefocus: needsRefocus,
	}, nil
}
