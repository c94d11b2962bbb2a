package design

import (
	"fmt"

	"github.com/TimothyStiles/nupack/base"
)

// Result is one completed design trial: the resolved strand sequences
// and the per-tube normalized defects the archive ranks trials by.
type Result struct {
	Strands     map[string]string
	TubeDefects []float64 // one per tube, in design tube order
	Vars        []base.Base
}

// Totals returns the objective vector the archive ranks this Result by:
// its per-tube normalized defects, lower being better (dominance in
// archive.Archive is defined the same way — component-wise <=, strict
// somewhere).
func (r Result) Totals() []float64 { return r.TubeDefects }

// buildResult resolves every declared strand's sequence from vars and
// pairs it with the design's final per-tube normalized defects.
func (d *Design) buildResult(vars []base.Base, tubeDefects []float64) (Result, error) {
	strands := make(map[string]string, len(d.pool.StrandNames()))
	for _, name := range d.pool.StrandNames() {
		seq, err := d.pool.StrandSequence(name, vars)
		if err != nil {
			return Result{}, fmt.Errorf("design: resolving strand %q: %w", name, err)
		}
		strands[name] = base.FormatSequence(seq)
	}
	return Result{
		Strands:     strands,
		TubeDefects: tubeDefects,
		Vars:        append([]base.Base(nil), vars...),
	}, nil
}
