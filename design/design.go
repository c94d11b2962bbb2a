/*
Package design is the top-level orchestration layer: it wires a
sequence.Pool, its declared complexes, tubes, and weights together with
a model cache, a thermodynamic engine, a per-complex decomposition
tree, the active/passive ensemble partition, and the constraint-
satisfaction problem over the flat variable space, then drives the
leaf/forest optimizer and the Pareto archive to produce designed
sequences.

The wiring mirrors the reference design controller's add_complex/
add_tube/add_structure_complementarity bookkeeping, generalized to Go's
explicit-construction idiom: a Design is built once via NewDesign and
is immutable in its topology thereafter (only the flat variable
assignment and ensemble partition mutate during a run).
*/
package design

import (
	"fmt"
	"math/rand"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/constraints"
	"github.com/TimothyStiles/nupack/decomposition"
	"github.com/TimothyStiles/nupack/ensemble"
	"github.com/TimothyStiles/nupack/modelmap"
	"github.com/TimothyStiles/nupack/sequence"
	"github.com/TimothyStiles/nupack/thermo"
)

// Spec is the user-facing input to a design run: a fully-populated pool,
// the complexes drawn from it, the tubes grouping on-target complexes by
// target concentration, and the per-scope defect weights.
type Spec struct {
	Pool      *sequence.Pool
	Complexes []*sequence.Complex
	Tubes     []sequence.Tube
	Weights   []sequence.Weight
	Wobble    bool

	ForbiddenPatterns         []string
	ForbiddenDoubleStranded   bool
	MaxConstraintTries        int
	StopOnUnsatisfiable       bool
	CacheSize                 int // thermodynamic evaluation cache entries; 0 disables caching
}

// Design is a fully-resolved, ready-to-optimize design problem.
type Design struct {
	pool      *sequence.Pool
	complexes []*sequence.Complex
	tubes     []sequence.Tube
	problem   *constraints.Problem
	models    *modelmap.Map
	engine    thermo.Engine

	trees     []*decomposition.Tree // one per complex, nil for off-target complexes with no structure yet decomposed
	weights   *resolvedWeights

	tubeMembers [][]int // tubeMembers[t] = every complex (on- and off-target) sharing tube t's strand universe
}

// NewDesign validates spec and compiles it into a Design ready for
// Run. Every complex must already have had Build called against
// spec.Pool.
func NewDesign(spec Spec) (*Design, error) {
	if spec.Pool == nil {
		return nil, fmt.Errorf("design: spec has no pool")
	}
	if len(spec.Complexes) == 0 {
		return nil, fmt.Errorf("design: spec has no complexes")
	}
	for _, t := range spec.Tubes {
		if err := t.Validate(len(spec.Complexes)); err != nil {
			return nil, fmt.Errorf("design: %w", err)
		}
	}

	var opts []constraints.Option
	if len(spec.ForbiddenPatterns) > 0 {
		opts = append(opts, constraints.WithForbiddenPatterns(spec.ForbiddenPatterns, spec.ForbiddenDoubleStranded))
	}
	if spec.MaxConstraintTries > 0 {
		opts = append(opts, constraints.WithMaxTries(spec.MaxConstraintTries))
	}
	problem, err := constraints.NewProblem(spec.Pool, spec.Complexes, spec.Wobble, opts...)
	if err != nil {
		return nil, fmt.Errorf("design: compiling constraint problem: %w", err)
	}

	models := modelmap.New()
	var engine thermo.Engine = thermo.NewDefaultEngine()
	if spec.CacheSize > 0 {
		engine = thermo.NewCache(engine, spec.CacheSize)
	}

	trees := make([]*decomposition.Tree, len(spec.Complexes))
	for i, c := range spec.Complexes {
		if c.IsOnTarget() {
			trees[i] = decomposition.BuildStructural(c.Target.Structure, c.Params)
		}
	}

	resolved, err := resolveWeights(spec.Pool, spec.Complexes, spec.Tubes, spec.Weights)
	if err != nil {
		return nil, fmt.Errorf("design: resolving weights: %w", err)
	}

	d := &Design{
		pool:      spec.Pool,
		complexes: spec.Complexes,
		tubes:     spec.Tubes,
		problem:   problem,
		models:    models,
		engine:    engine,
		trees:     trees,
		weights:   resolved,
	}
	// tubeMembers must include every off-target complex sharing the
	// tube's strand universe, not just its declared on-target entries:
	// ensemble.Refocus's softmax share computation (ensemble/refocus.go)
	// only ever considers complexes listed here, so a passive off-target
	// complex left out can never be promoted ahead of plain index order.
	d.tubeMembers = make([][]int, len(spec.Tubes))
	for i := range spec.Tubes {
		for idx := range d.complexes {
			if d.complexInTube(idx, i) {
				d.tubeMembers[i] = append(d.tubeMembers[i], idx)
			}
		}
	}
	return d, nil
}

// NumComplexes returns the number of complexes in the design.
func (d *Design) NumComplexes() int { return len(d.complexes) }

// OnTargetIndices returns the indices (into d.complexes) of every
// on-target complex.
func (d *Design) OnTargetIndices() []int {
	var out []int
	for i, c := range d.complexes {
		if c.IsOnTarget() {
			out = append(out, i)
		}
	}
	return out
}

// initialPartition builds the ensemble partition every run starts from:
// on-target complexes active, everything else passive.
func (d *Design) initialPartition() ensemble.Partition {
	onTarget := make([]bool, len(d.complexes))
	for i, c := range d.complexes {
		onTarget[i] = c.IsOnTarget()
	}
	return ensemble.NewPartition(onTarget)
}

// InitializeVariables produces a fresh, fully-constrained random
// variable assignment over the pool's flat variable space.
func (d *Design) InitializeVariables(rng *rand.Rand) ([]base.Base, error) {
	return d.problem.Initialize(rng)
}
