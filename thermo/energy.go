package thermo

import (
	"math"

	"github.com/TimothyStiles/nupack/base"
)

// stackEnergy is the simplified per-pair-type stacking free energy
// (kcal/mol), standing in for a full nearest-neighbor table: GC pairs are
// most stable, AU least, GU wobble intermediate. This loses sequence
// context (a real NN table varies by the identity of the adjacent pair)
// but preserves the qualitative GC > AU > GU ordering every downstream
// consumer (defect scoring, the optimizer) actually depends on.
var stackEnergy = map[base.Base]map[base.Base]float64{
	base.G: {base.C: -3.4, base.U: -1.3},
	base.C: {base.G: -3.4},
	base.A: {base.U: -2.1},
	base.U: {base.A: -2.1, base.G: -1.3},
}

// pairEnergy returns the stacking free energy contribution of a closed
// base pair (x,y), or +inf if the pair is not legal under the model.
func pairEnergy(x, y base.Base, m Model) float64 {
	if !base.CanPair(x, y, m.Wobble) {
		return math.Inf(1)
	}
	if e, ok := stackEnergy[x][y]; ok {
		return e
	}
	return 0
}

// hairpinInitiation, interiorInitiation, loopEntropyCoeff implement a
// Jacobson-Stockmayer length-based approximation: a hairpin of n unpaired
// nucleotides costs hairpinInitiation + RT * loopEntropyCoeff * ln(n), an
// interior loop/bulge of n unpaired nucleotides costs interiorInitiation +
// RT * loopEntropyCoeff * ln(n+1) plus an asymmetry penalty, standing in
// for the teacher's measured per-length LoopEnergy tables in
// fold/seqfold.go.
const (
	hairpinInitiation   = 4.5  // kcal/mol, constant term of the hairpin cost
	interiorInitiation  = 1.5
	loopEntropyCoeff    = 1.75 // dimensionless multiplier on RT*ln(n)
	minHairpinLoop      = 3
)

// hairpinEnergy returns the free energy of a hairpin loop of n unpaired
// nucleotides under model m.
func hairpinEnergy(n int, m Model) float64 {
	if n < minHairpinLoop {
		return math.Inf(1)
	}
	return hairpinInitiation + m.RT()*loopEntropyCoeff*math.Log(float64(n))
}

// interiorLoopEnergy returns the free energy of an interior loop/bulge
// with nl and nr unpaired nucleotides on each side (nl==0 or nr==0 for a
// bulge, both 0 for a stack, handled by the caller via pairEnergy).
func interiorLoopEnergy(nl, nr int, m Model) float64 {
	n := nl + nr
	if n == 0 {
		return 0 // pure stack, scored by pairEnergy alone
	}
	asymmetryPenalty := 0.3 * math.Abs(float64(nl-nr))
	return interiorInitiation + m.RT()*loopEntropyCoeff*math.Log(float64(n)+1) + asymmetryPenalty
}

// MultibranchCoefficients are the linear multiloop approximation's
// per-branch, per-unpaired-nucleotide, and initiation coefficients:
// dG = A + B*unpaired + C*branches, following fold.MultibranchEnergies'
// shape (A,B,C,D) with D (terminal mismatch)
// dropped since this model carries no dangling-end/mismatch energies.
type MultibranchCoefficients struct {
	A, B, C float64
}

// DefaultMultibranch is a conventional linear multiloop penalty.
var DefaultMultibranch = MultibranchCoefficients{A: 3.4, B: 0.0, C: 0.4}

func multibranchEnergy(unpaired, branches int, coef MultibranchCoefficients) float64 {
	return coef.A + coef.B*float64(unpaired) + coef.C*float64(branches)
}
