/*
Package decomposition builds and evaluates the per-complex decomposition
tree: a recursive partition of a complex's nucleotides into sub-problems
induced by base-pair split points, with an AND/OR dynamic program over
the tree for log-partition-function and pair-probability evaluation.

Structure-based decomposition (on-target complexes) recurses on the
target Structure until no legal split point remains. Probability-based
decomposition (off-target complexes, or redecomposition of an active
complex mid-search) instead recurses on a node's current pair
probabilities, admitting an OR-composition over mutually exclusive
alternative split pairs when no single pair captures the required
ensemble fraction.

Node storage follows a preference for slice-indexed arenas over
pointer graphs (seen in fold.FoldContext's V/W caches, which are plain
2D slices rather than linked trees): nodes live in Tree.Nodes and
reference children by integer index, so a Tree is trivially copyable and
free of cycles.
*/
package decomposition

import (
	"fmt"
	"sort"

	"github.com/TimothyStiles/nupack/sequence"
	"github.com/TimothyStiles/nupack/thermo"
)

// Span is a (possibly wrapping) contiguous run of Count nucleotide
// positions starting at Start, modulo N — the circular-complex indexing
// a decomposition split requires: removing a helix's interior from a
// circular structure leaves the remainder as a single wrapped run.
type Span struct {
	Start, Count, N int
}

// Pos returns the absolute nucleotide index of the k-th position (0-based)
// within the span.
func (s Span) Pos(k int) int { return (s.Start + k) % s.N }

// relative returns the 0-based offset of absolute position pos within the
// span, or -1 if pos does not lie within it.
func (s Span) relative(pos int) int {
	r := ((pos-s.Start)%s.N + s.N) % s.N
	if r >= s.Count {
		return -1
	}
	return r
}

// Kind distinguishes a decomposition node's role.
type Kind int

const (
	// Leaf is evaluated by a direct thermodynamic evaluation.
	Leaf Kind = iota
	// AndSplit has exactly two children sharing a single enforced pair.
	AndSplit
	// OrSplit has two or more children, each an alternative exclusive
	// enforced-pair assumption; the node's ensemble is their union.
	OrSplit
)

// Node is one sub-problem in a complex's decomposition tree.
type Node struct {
	Kind          Kind
	Span          Span
	EnforcedPairs []thermo.Pair // accumulated from the root down to this node
	SplitPair     thermo.Pair   // meaningful for AndSplit and each OrSplit branch
	Children      []int         // indices into Tree.Nodes
}

// Tree is a complex's full decomposition, stored as a flat arena.
type Tree struct {
	Nodes []Node
	Root  int
	N     int // complex length (nucleotides)
}

func (t *Tree) addNode(n Node) int {
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

// BuildStructural recursively decomposes an on-target complex's
// Structure, stopping when no split point satisfies N_split/H_split.
func BuildStructural(structure *sequence.Structure, params sequence.DecompositionParameters) *Tree {
	n := structure.Len()
	t := &Tree{N: n}
	root := Span{Start: 0, Count: n, N: n}
	t.Root = t.buildStructuralNode(structure, root, nil, params)
	return t
}

func (t *Tree) buildStructuralNode(structure *sequence.Structure, span Span, enforced []thermo.Pair, params sequence.DecompositionParameters) int {
	i, j, ok := findStructuralSplit(structure, span, params)
	if !ok {
		return t.addNode(Node{Kind: Leaf, Span: span, EnforcedPairs: enforced})
	}
	innerSpan, outerSpan := splitSpan(span, i, j)
	childEnforced := append(append([]thermo.Pair(nil), enforced...), thermo.Pair{I: i, J: j})

	innerIdx := t.buildStructuralNode(structure, innerSpan, childEnforced, params)
	outerIdx := t.buildStructuralNode(structure, outerSpan, childEnforced, params)
	return t.addNode(Node{
		Kind:          AndSplit,
		Span:          span,
		EnforcedPairs: enforced,
		SplitPair:     thermo.Pair{I: i, J: j},
		Children:      []int{innerIdx, outerIdx},
	})
}

// splitSpan partitions span at pair (i,j) into the interior span [i..j]
// and the wrapping exterior span [j..i], each inclusive of both i and j.
func splitSpan(span Span, i, j int) (inner, outer Span) {
	ri, rj := span.relative(i), span.relative(j)
	if ri > rj {
		ri, rj = rj, ri
		i, j = j, i
	}
	innerCount := rj - ri + 1
	outerCount := span.Count - innerCount + 2
	return Span{Start: i, Count: innerCount, N: span.N}, Span{Start: j, Count: outerCount, N: span.N}
}

// findStructuralSplit scans every base pair whose endpoints both lie in
// span and returns the one satisfying N_split/H_split that minimizes the
// child-size imbalance, tie-breaking toward the lower absolute index.
func findStructuralSplit(structure *sequence.Structure, span Span, params sequence.DecompositionParameters) (i, j int, ok bool) {
	bestImbalance := -1
	bestI, bestJ := -1, -1
	for k := 0; k < span.Count; k++ {
		a := span.Pos(k)
		b := structure.Pairs[a]
		if b == a {
			continue // unpaired
		}
		rb := span.relative(b)
		if rb < 0 || rb <= k {
			continue // partner outside span, or already visited as (b,a)
		}
		if k == 0 && rb == span.Count-1 {
			continue // span's own enclosing pair: splitting on it is a no-op
		}
		inner, outer := splitSpan(span, a, b)
		if inner.Count < params.MinSize || outer.Count < params.MinSize {
			continue
		}
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		if !hasHelixPadding(structure, lo, hi, params.MinHelix) {
			continue
		}
		imbalance := abs(inner.Count - outer.Count)
		lowI := a
		if b < lowI {
			lowI = b
		}
		if bestImbalance == -1 || imbalance < bestImbalance || (imbalance == bestImbalance && lowI < min(bestI, bestJ)) {
			bestImbalance = imbalance
			bestI, bestJ = a, b
		}
	}
	if bestImbalance == -1 {
		return 0, 0, false
	}
	if bestI > bestJ {
		bestI, bestJ = bestJ, bestI
	}
	return bestI, bestJ, true
}

// hasHelixPadding reports whether the pair (i,j) sits in the middle of a
// helix at least minHelix base pairs long: minHelix-1 additional stacked
// pairs must continue on both the inward and outward side.
func hasHelixPadding(structure *sequence.Structure, i, j int, minHelix int) bool {
	if minHelix <= 1 {
		return true
	}
	n := structure.Len()
	inward := 1
	for k := 1; k < minHelix; k++ {
		ii, jj := i+k, j-k
		if ii < 0 || jj < 0 || ii >= n || jj >= n || ii >= jj {
			break
		}
		if structure.Pairs[ii] != jj {
			break
		}
		inward++
	}
	outward := 1
	for k := 1; k < minHelix; k++ {
		ii, jj := i-k, j+k
		if ii < 0 || jj < 0 || ii >= n || jj >= n {
			break
		}
		if structure.Pairs[ii] != jj {
			break
		}
		outward++
	}
	return inward >= minHelix && outward >= minHelix
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// candidateSplit is a scored alternative pair considered during
// probability-based decomposition.
type candidateSplit struct {
	i, j int
	prob float64
}

// BuildProbabilistic decomposes a single node (typically a leaf being
// redecomposed, or the root of an off-target complex with no target
// structure) using its current pair-probability matrix probs (in the
// node's own span-local coordinates, i.e. probs[k][l] is the probability
// that span.Pos(k) pairs with span.Pos(l)). It greedily selects the
// highest-probability legal split pairs as OR-alternatives until their
// combined probability reaches params.MinPfuncFrac, or returns the node
// unmodified (as a Leaf) if no legal split exists.
func BuildProbabilistic(t *Tree, nodeIdx int, probs [][]float64, params sequence.DecompositionParameters) int {
	node := t.Nodes[nodeIdx]
	span := node.Span

	var candidates []candidateSplit
	for k := 0; k < span.Count; k++ {
		for l := k + 1; l < span.Count; l++ {
			p := probs[k][l]
			if p <= 0 {
				continue
			}
			a, b := span.Pos(k), span.Pos(l)
			inner, outer := splitSpan(span, a, b)
			if inner.Count < params.MinSize || outer.Count < params.MinSize {
				continue
			}
			candidates = append(candidates, candidateSplit{i: a, j: b, prob: p})
		}
	}
	sort.Slice(candidates, func(x, y int) bool { return candidates[x].prob > candidates[y].prob })

	var chosen []candidateSplit
	var cumulative float64
	for _, c := range candidates {
		if cumulative >= params.MinPfuncFrac {
			break
		}
		chosen = append(chosen, c)
		cumulative += c.prob
	}
	if len(chosen) == 0 {
		return nodeIdx // remains a Leaf
	}

	branches := make([]int, 0, len(chosen))
	for _, c := range chosen {
		childEnforced := append(append([]thermo.Pair(nil), node.EnforcedPairs...), thermo.Pair{I: c.i, J: c.j})
		inner, outer := splitSpan(span, c.i, c.j)
		innerLeaf := t.addNode(Node{Kind: Leaf, Span: inner, EnforcedPairs: childEnforced})
		outerLeaf := t.addNode(Node{Kind: Leaf, Span: outer, EnforcedPairs: childEnforced})
		and := t.addNode(Node{
			Kind: AndSplit, Span: span, EnforcedPairs: node.EnforcedPairs,
			SplitPair: thermo.Pair{I: c.i, J: c.j}, Children: []int{innerLeaf, outerLeaf},
		})
		branches = append(branches, and)
	}

	if len(branches) == 1 {
		t.Nodes[nodeIdx] = t.Nodes[branches[0]]
		return nodeIdx
	}
	t.Nodes[nodeIdx] = Node{Kind: OrSplit, Span: span, EnforcedPairs: node.EnforcedPairs, Children: branches}
	return nodeIdx
}

// Validate reports a non-nil error if the tree's node indices or span
// arithmetic are inconsistent, which would indicate a construction bug
// rather than an expected runtime condition.
func (t *Tree) Validate() error {
	for i, n := range t.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(t.Nodes) {
				return fmt.Errorf("decomposition: node %d references out-of-range child %d", i, c)
			}
		}
	}
	if t.Root < 0 || t.Root >= len(t.Nodes) {
		return fmt.Errorf("decomposition: root index %d out of range", t.Root)
	}
	return nil
}
