package design

import (
	"context"
	"fmt"
	"sync"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/decomposition"
	"github.com/TimothyStiles/nupack/defect"
)

// Depth selects how thoroughly a complex's ensemble is evaluated. Full
// treats the whole complex as a single thermodynamic leaf (no
// decomposition, the ground truth); Estimate evaluates it through its
// decomposition tree, assuming conditional independence across each
// split — the approximation the forest optimizer propagates up from
// leaf to root between full re-evaluations.
type Depth int

const (
	Full Depth = iota
	Estimate
)

// evaluateComplex computes complex idx's log partition function and
// pair-probability matrix (in the complex's own local coordinates)
// under vars, at the requested depth.
func (d *Design) evaluateComplex(ctx context.Context, idx int, vars []base.Base, depth Depth) (logPfunc float64, probs [][]float64, err error) {
	if err := checkContext(ctx); err != nil {
		return 0, nil, err
	}
	c := d.complexes[idx]
	model, err := d.models.Resolve(c.Target.Model)
	if err != nil {
		return 0, nil, fmt.Errorf("design: complex %q: %w", c.Name, err)
	}
	seq, err := c.NickSequence(d.pool, vars)
	if err != nil {
		return 0, nil, fmt.Errorf("design: complex %q: %w", c.Name, err)
	}

	if depth == Full || d.trees[idx] == nil {
		lp, err := d.engine.LogPfunc(seq, nil, model)
		if err != nil {
			return 0, nil, fmt.Errorf("design: complex %q: %w", c.Name, err)
		}
		p, err := d.engine.PairProbabilities(seq, nil, model)
		if err != nil {
			return 0, nil, fmt.Errorf("design: complex %q: %w", c.Name, err)
		}
		return lp, p, nil
	}

	ev := decomposition.Evaluator{Engine: d.engine, Sequence: seq, Model: model}
	res, err := ev.Evaluate(d.trees[idx])
	if err != nil {
		return 0, nil, fmt.Errorf("design: complex %q: %w", c.Name, err)
	}
	return res.LogPfunc, res.Probs, nil
}

// complexDefect computes complex idx's structural defect, projected and
// weighted into the pool's flat variable index space. Only meaningful
// for on-target complexes; off-target complexes have no target
// structure to measure a defect against.
func (d *Design) complexDefect(ctx context.Context, idx int, vars []base.Base, depth Depth, tubeIndex int) (defect.Defect, error) {
	c := d.complexes[idx]
	if !c.IsOnTarget() {
		return defect.Defect{}, nil
	}
	_, probs, err := d.evaluateComplex(ctx, idx, vars, depth)
	if err != nil {
		return defect.Defect{}, err
	}
	nd := defect.NucleotideDefects(probs, c.Target.Structure)

	multiplier := d.weights.multiplierFor(tubeIndex, idx)
	if multiplier != nil {
		weights := make([]float64, len(nd.Contributions))
		for i, ctb := range nd.Contributions {
			weights[i] = multiplier[ctb.Index]
		}
		nd, err = nd.Weighted(weights)
		if err != nil {
			return defect.Defect{}, fmt.Errorf("design: complex %q: %w", c.Name, err)
		}
	}

	toIndices, err := c.ToIndices(d.pool)
	if err != nil {
		return defect.Defect{}, fmt.Errorf("design: complex %q: %w", c.Name, err)
	}
	return defect.Project(nd, toIndices), nil
}

// logPfuncs evaluates every complex in indices at depth, returning them
// in the same order. It is the LogPfuncFunc ensemble.Refocus needs.
//
// Each complex's evaluation only reads vars, so the fan-out follows
// clone.go's Ligate: one goroutine per complex, a sync.WaitGroup to
// join them, and a buffered channel sized to the fan-out carrying the
// first error back to the caller.
func (d *Design) logPfuncs(ctx context.Context, vars []base.Base, depth Depth, indices []int) ([]float64, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	out := make([]float64, len(indices))
	errc := make(chan error, len(indices))
	var wg sync.WaitGroup
	wg.Add(len(indices))
	for i, idx := range indices {
		go func(i, idx int) {
			defer wg.Done()
			lp, _, err := d.evaluateComplex(ctx, idx, vars, depth)
			if err != nil {
				errc <- err
				return
			}
			out[i] = lp
		}(i, idx)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// tubeResult evaluates one tube's equilibrium and normalized defect at
// depth, given the current ensemble partition (only active complexes
// participate; off-target complexes not yet promoted into activity are
// omitted from the mass-action solve entirely, matching the ensemble
// partition's role of bounding how much of the exponential off-target
// space is actually evaluated on any given iteration).
//
// The active, in-tube complexes are evaluated one goroutine apiece
// (clone.go's Ligate fan-out again), each writing into its own slot of
// a fixed-size slice so the result preserves ascending complex-index
// order regardless of goroutine scheduling.
func (d *Design) tubeResult(ctx context.Context, tubeIndex int, vars []base.Base, depth Depth, active []bool) (defect.TubeResult, error) {
	if err := checkContext(ctx); err != nil {
		return defect.TubeResult{}, err
	}
	tube := d.tubes[tubeIndex]
	onTargetConc := make(map[int]float64, len(tube.Entries))
	for _, e := range tube.Entries {
		onTargetConc[e.ComplexIndex] = e.TargetConc
	}

	type slot struct {
		entry defect.ComplexEntry
		ok    bool
	}
	slots := make([]slot, len(d.complexes))
	errc := make(chan error, len(d.complexes))
	var wg sync.WaitGroup
	for idx := range d.complexes {
		if !active[idx] || !d.complexInTube(idx, tubeIndex) {
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c := d.complexes[idx]
			lp, probs, err := d.evaluateComplex(ctx, idx, vars, depth)
			if err != nil {
				errc <- err
				return
			}
			entry := defect.ComplexEntry{
				Composition:     d.strandComposition(tubeIndex, idx),
				LogPfunc:        lp,
				NucleotideCount: c.Length,
			}
			if conc, onTarget := onTargetConc[idx]; onTarget {
				entry.OnTarget = true
				entry.TargetConc = conc
				nd := defect.NucleotideDefects(probs, c.Target.Structure)
				entry.Defect = nd
			}
			slots[idx] = slot{entry: entry, ok: true}
		}(idx)
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		if err != nil {
			return defect.TubeResult{}, err
		}
	}

	var entries []defect.ComplexEntry
	for _, s := range slots {
		if s.ok {
			entries = append(entries, s.entry)
		}
	}
	if len(entries) == 0 {
		return defect.TubeResult{}, fmt.Errorf("design: tube %q has no active complexes to evaluate", tube.Name)
	}
	return defect.EvaluateTube(entries, defect.NewMassAction())
}

// complexInTube reports whether idx is explicitly listed in tube, or is
// an off-target complex (present in the exponential ensemble of every
// tube whose listed complexes contain all of its strands).
func (d *Design) complexInTube(idx, tubeIndex int) bool {
	c := d.complexes[idx]
	tube := d.tubes[tubeIndex]
	if c.IsOnTarget() {
		for _, e := range tube.Entries {
			if e.ComplexIndex == idx {
				return true
			}
		}
		return false
	}
	tubeStrands := make(map[string]bool)
	for _, e := range tube.Entries {
		for _, sn := range d.complexes[e.ComplexIndex].Strands {
			tubeStrands[sn] = true
		}
	}
	for _, sn := range c.Strands {
		if !tubeStrands[sn] {
			return false
		}
	}
	return true
}

// strandComposition returns, in the tube's declared strand order (the
// union of strands referenced by the tube's on-target complexes), the
// copy count of each strand present in complex idx.
func (d *Design) strandComposition(tubeIndex, idx int) []float64 {
	order := d.tubeStrandOrder(tubeIndex)
	counts := make(map[string]int)
	for _, sn := range d.complexes[idx].Strands {
		counts[sn]++
	}
	out := make([]float64, len(order))
	for i, sn := range order {
		out[i] = float64(counts[sn])
	}
	return out
}

func (d *Design) tubeStrandOrder(tubeIndex int) []string {
	seen := make(map[string]bool)
	var order []string
	for _, e := range d.tubes[tubeIndex].Entries {
		for _, sn := range d.complexes[e.ComplexIndex].Strands {
			if !seen[sn] {
				seen[sn] = true
				order = append(order, sn)
			}
		}
	}
	return order
}

// normalizedDefect evaluates every tube and averages their normalized
// defects, weighted by each tube's contribution to the design (equal
// weight per tube, following the reference controller's default).
func (d *Design) normalizedDefect(ctx context.Context, vars []base.Base, depth Depth, active []bool) (float64, error) {
	results := make([]defect.TubeResult, len(d.tubes))
	weights := make([]float64, len(d.tubes))
	for t := range d.tubes {
		r, err := d.tubeResult(ctx, t, vars, depth, active)
		if err != nil {
			return 0, err
		}
		results[t] = r
		weights[t] = 1
	}
	return defect.DesignNormalizedDefect(results, weights)
}
