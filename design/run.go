package design

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/TimothyStiles/nupack/archive"
	"github.com/TimothyStiles/nupack/nerr"
	"github.com/TimothyStiles/nupack/optimizer"
)

// RunOptions bounds one design search: how many independent trials to
// run, the leaf/forest optimizer's iteration limits, the refocus
// threshold, the Pareto archive's capacity, and a wall-clock budget for
// the whole run.
type RunOptions struct {
	Trials           int
	Limits           optimizer.Limits
	FStop            float64
	FRefocus         float64
	MaxRefocusRounds int
	ArchiveSize      int

	// Timeout bounds the whole Run call. Zero means no deadline beyond
	// whatever the caller's context already carries.
	Timeout time.Duration
}

// DefaultRunOptions returns conservative defaults suitable for a small
// design (a handful of complexes, short sequences).
func DefaultRunOptions() RunOptions {
	return RunOptions{
		Trials: 1,
		Limits: optimizer.Limits{
			MBad: 5, MReseed: 20, MReopt: 3,
			FStop: 0.01, K: 3, MaxIterations: 500,
		},
		FStop:            0.01,
		FRefocus:         0.01,
		MaxRefocusRounds: 5,
		ArchiveSize:      20,
	}
}

// checkContext reports nerr.Canceled, wrapped with whatever ctx.Err()
// says (context.Canceled or context.DeadlineExceeded), the first time a
// caller notices ctx is done. Every long-running loop in this package
// polls it between trials, rounds, and complexes.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("design: %s: %w", ctx.Err(), nerr.Canceled)
	default:
		return nil
	}
}

// Run performs opts.Trials independent design trials, each starting
// from a fresh random constrained assignment, and returns the Pareto
// archive of every trial that survived attempt_add. If opts.Timeout is
// positive, the whole call (including any in-flight trial's
// per-complex evaluations) is bounded by it; a trial in progress when
// the deadline passes returns nerr.Canceled rather than a partial
// result.
func (d *Design) Run(ctx context.Context, rng *rand.Rand, opts RunOptions) (*archive.Archive, error) {
	if opts.Trials <= 0 {
		return nil, fmt.Errorf("design: Run requires at least one trial")
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	arc := archive.New(opts.ArchiveSize)
	for trial := 0; trial < opts.Trials; trial++ {
		if err := checkContext(ctx); err != nil {
			return nil, fmt.Errorf("design: trial %d: %w", trial, err)
		}
		result, err := d.runTrial(ctx, rng, opts)
		if err != nil {
			return nil, fmt.Errorf("design: trial %d: %w", trial, err)
		}
		if _, _, err := arc.AttemptAdd(archive.Entry{Totals: result.Totals(), Payload: result}); err != nil {
			return nil, fmt.Errorf("design: trial %d: recording result: %w", trial, err)
		}
	}
	return arc, nil
}

// runTrial runs one full design trial: random initialization, then
// alternating rounds of per-complex forest optimization and ensemble
// refocus until no on-target complex's full objective still exceeds the
// larger of FStop and its depth-1 estimate, a refocus promotes no further
// complex, or the round budget is exhausted.
func (d *Design) runTrial(ctx context.Context, rng *rand.Rand, opts RunOptions) (Result, error) {
	vars, err := d.InitializeVariables(rng)
	if err != nil {
		return Result{}, fmt.Errorf("initializing variables: %w", err)
	}
	partition := d.initialPartition()
	onTargets := d.OnTargetIndices()

	for round := 0; round < opts.MaxRefocusRounds; round++ {
		if err := checkContext(ctx); err != nil {
			return Result{}, err
		}
		anyNeedsRefocus := false
		for _, idx := range onTargets {
			if err := checkContext(ctx); err != nil {
				return Result{}, err
			}
			out, err := d.optimizeComplex(ctx, idx, &vars, rng, opts.Limits, opts.FStop)
			if err != nil {
				return Result{}, fmt.Errorf("optimizing complex %q: %w", d.complexes[idx].Name, err)
			}
			if out.NeedsRefocus {
				anyNeedsRefocus = true
			}
		}
		if !anyNeedsRefocus {
			break
		}
		outcome, err := d.refocus(ctx, vars, partition, opts.FRefocus)
		if err != nil {
			return Result{}, fmt.Errorf("refocusing ensemble: %w", err)
		}
		partition = outcome.Partition
		if len(outcome.Activated) == 0 {
			break
		}
	}

	tubeDefects := make([]float64, len(d.tubes))
	for t := range d.tubes {
		tr, err := d.tubeResult(ctx, t, vars, Full, partition.Active)
		if err != nil {
			return Result{}, fmt.Errorf("evaluating tube %q: %w", d.tubes[t].Name, err)
		}
		tubeDefects[t] = tr.NormalizedDefect
	}
	return d.buildResult(vars, tubeDefects)
}
