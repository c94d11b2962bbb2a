package thermo

import (
	"fmt"
	"math"

	"github.com/TimothyStiles/nupack/base"
)

// Pair is an enforced base pair (i,j), i<j, clamped via a large favorable
// bonus energy rather than a hard combinatorial restriction, matching the
// original design's "bonus energy" approach to enforcing a decomposition
// split point's pair in a sub-problem.
type Pair struct{ I, J int }

// enforcedBonus is the free-energy bonus (kcal/mol, more negative is more
// favorable) applied to an enforced pair, large enough to dominate the
// ensemble for any sequence length this module is expected to evaluate.
const enforcedBonus = -50.0

// Engine evaluates the thermodynamic ensemble of a nucleotide sequence
// (nick positions marked with base.Break) under a Model.
type Engine interface {
	// LogPfunc returns the natural log of the ensemble partition function.
	LogPfunc(seq []base.Base, enforced []Pair, m Model) (float64, error)
	// PairProbabilities returns the n x n matrix of marginal base-pairing
	// probabilities (P[i][i] is the probability that i is unpaired).
	PairProbabilities(seq []base.Base, enforced []Pair, m Model) ([][]float64, error)
}

// DefaultEngine is a simplified McCaskill-style partition-function and
// base-pair-probability calculator: the recursions (external loop,
// closed-pair, multiloop, and their outside counterparts) follow the
// standard structure, but the energy functions in energy.go are
// length-based approximations rather than a measured nearest-neighbor
// table, and dangling-end/terminal-mismatch contributions are omitted
// entirely (see package doc).
type DefaultEngine struct {
	Multibranch MultibranchCoefficients
}

// NewDefaultEngine returns a DefaultEngine using the conventional linear
// multiloop coefficients.
func NewDefaultEngine() *DefaultEngine {
	return &DefaultEngine{Multibranch: DefaultMultibranch}
}

type dp struct {
	seq         []base.Base
	n           int
	m           Model
	rt          float64
	multibranch MultibranchCoefficients
	bonus       map[[2]int]float64

	qb, qm, qmZero, q, qo [][]float64
}

func newDP(seq []base.Base, enforced []Pair, m Model, mb MultibranchCoefficients) *dp {
	n := len(seq)
	d := &dp{
		seq: seq, n: n, m: m, rt: m.RT(), multibranch: mb,
		bonus: make(map[[2]int]float64, len(enforced)),
	}
	for _, p := range enforced {
		d.bonus[[2]int{p.I, p.J}] = enforcedBonus
	}
	mk := func() [][]float64 {
		t := make([][]float64, n)
		for i := range t {
			t[i] = make([]float64, n)
		}
		return t
	}
	d.qb, d.qm, d.qmZero, d.q, d.qo = mk(), mk(), mk(), mk(), mk()
	return d
}

func (d *dp) bonusFor(i, j int) float64 {
	if b, ok := d.bonus[[2]int{i, j}]; ok {
		return b
	}
	if b, ok := d.bonus[[2]int{j, i}]; ok {
		return b
	}
	return 0
}

// pairBoltzmann is the intrinsic Boltzmann weight of nucleotides i and j
// forming a pair, independent of what loop they close.
func (d *dp) pairBoltzmann(i, j int) float64 {
	if !base.CanPair(d.seq[i], d.seq[j], d.m.Wobble) {
		return 0
	}
	e := pairEnergy(d.seq[i], d.seq[j], d.m) - d.bonusFor(i, j)
	return math.Exp(-e / d.rt)
}

// qAt/qmAt/qmZeroAt/qoAt wrap out-of-triangle boundary conventions so the
// recursions below can be written without special-casing empty segments.
func (d *dp) qAt(i, j int) float64 {
	if i > j {
		return 1
	}
	return d.q[i][j]
}

func (d *dp) qbAt(i, j int) float64 {
	if i < 0 || j >= d.n || i >= j {
		return 0
	}
	return d.qb[i][j]
}

func (d *dp) qmAt(i, j int) float64 {
	if i > j {
		return 0
	}
	return d.qm[i][j]
}

func (d *dp) qmZeroAt(i, j int) float64 {
	if i > j {
		return 1
	}
	return d.qmZero[i][j]
}

func (d *dp) qoAt(i, j int) float64 {
	if i < 0 || j >= d.n || i >= j {
		return 0
	}
	return d.qo[i][j]
}

// fill runs the full forward (Qb, Qm, QmZero, Q) and outside (Qo) passes.
func (d *dp) fill() {
	n := d.n
	unpairedFactor := math.Exp(-d.multibranch.B / d.rt)
	branchFactor := math.Exp(-d.multibranch.C / d.rt)
	initFactor := math.Exp(-d.multibranch.A / d.rt)

	for length := 0; length < n; length++ {
		for i := 0; i+length < n; i++ {
			j := i + length

			// Qb(i,j): i and j paired.
			if d.pairBoltzmann(i, j) > 0 {
				hairpin := math.Exp(-hairpinEnergy(j-i-1, d.m) / d.rt)
				var interior float64
				for k := i + 1; k < j; k++ {
					for l := k + 1; l < j; l++ {
						inner := d.qbAt(k, l)
						if inner == 0 {
							continue
						}
						interior += math.Exp(-interiorLoopEnergy(k-i-1, j-l-1, d.m)/d.rt) * inner
					}
				}
				multi := initFactor * d.qmAt(i+1, j-1)
				d.qb[i][j] = d.pairBoltzmann(i, j) * (hairpin + interior + multi)
			}

			// Qm(i,j): segment with >=1 branch; QmZero(i,j): >=0 branches.
			qmZero := unpairedFactor * d.qmZeroAt(i+1, j)
			qm := unpairedFactor * d.qmAt(i+1, j)
			for k := i; k <= j; k++ {
				branch := d.qbAt(i, k) * branchFactor
				if branch == 0 {
					continue
				}
				qm += branch * (1 + d.qmAt(k+1, j))
				qmZero += branch * d.qmZeroAt(k+1, j)
			}
			d.qm[i][j] = qm
			d.qmZero[i][j] = qmZero
		}
	}

	// Exterior loop: Q(i,j).
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			q := d.qAt(i, j-1)
			for k := i; k <= j; k++ {
				q += d.qAt(i, k-1) * d.qbAt(k, j)
			}
			d.q[i][j] = q
		}
	}

	// Outside pass: Qo(i,j), decreasing span length.
	for length := n - 1; length >= 0; length-- {
		for i := 0; i+length < n; i++ {
			j := i + length
			exterior := d.qAt(0, i-1) * d.qAt(j+1, n-1)
			var nested float64
			for k := 0; k < i; k++ {
				for l := j + 1; l < n; l++ {
					outer := d.qoAt(k, l)
					if outer == 0 {
						continue
					}
					pb := d.pairBoltzmann(k, l)
					if pb == 0 {
						continue
					}
					// (i,j) as the sole inner pair of an interior loop/stack
					// closed by (k,l): exact for this recursion shape since
					// interior loops have exactly one enclosed pair.
					nested += outer * math.Exp(-interiorLoopEnergy(i-k-1, l-j-1, d.m)/d.rt) * pb
					// (i,j) as one branch of a multiloop closed by (k,l).
					nested += outer * initFactor * pb * branchFactor *
						d.qmZeroAt(k+1, i-1) * d.qmZeroAt(j+1, l-1)
				}
			}
			d.qo[i][j] = exterior + nested
		}
	}
}

// LogPfunc implements Engine.
func (e *DefaultEngine) LogPfunc(seq []base.Base, enforced []Pair, m Model) (float64, error) {
	if len(seq) == 0 {
		return 0, fmt.Errorf("thermo: empty sequence")
	}
	d := newDP(seq, enforced, m, e.Multibranch)
	d.fill()
	total := d.qAt(0, d.n-1)
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("thermo: non-finite partition function")
	}
	return math.Log(total), nil
}

// PairProbabilities implements Engine.
func (e *DefaultEngine) PairProbabilities(seq []base.Base, enforced []Pair, m Model) ([][]float64, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("thermo: empty sequence")
	}
	d := newDP(seq, enforced, m, e.Multibranch)
	d.fill()
	total := d.qAt(0, d.n-1)
	if total <= 0 {
		return nil, fmt.Errorf("thermo: non-finite partition function")
	}

	n := d.n
	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		paired := 0.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			p := d.qbAt(a, b) * d.qoAt(a, b) / total
			if p < 0 {
				p = 0
			}
			if p > 1 {
				p = 1
			}
			probs[i][j] = p
			paired += p
		}
		probs[i][i] = 1 - paired
		if probs[i][i] < 0 {
			probs[i][i] = 0
		}
	}
	return probs, nil
}
