package defect

import (
	"fmt"
	"math"
)

// ConcentrationSolver computes equilibrium complex concentrations from a
// composition matrix, per-complex log partition functions, and target
// strand concentrations. Composition[c][s] is the number of copies of
// strand s in complex c.
type ConcentrationSolver interface {
	Solve(composition [][]float64, logPfunc []float64, targetStrandConc []float64) ([]float64, error)
}

// MassAction solves the standard dilute-solution mass-action equilibrium
// by Newton's method on the strand chemical potentials (in log space):
// find mu such that, for complexConc[c] = exp(sum_s composition[c][s]*mu[s] + logPfunc[c]),
// the strand conservation law composition^T * complexConc == targetStrandConc
// holds. This is the convex dual of the equilibrium free-energy
// minimization and has a unique solution whenever targetStrandConc is
// strictly positive.
type MassAction struct {
	MaxIterations int
	Tolerance     float64
}

// NewMassAction returns a MassAction solver with the defaults used across
// this module's test tubes (concentrations on the order of nanomolar to
// micromolar, so a relative tolerance of 1e-12 on the conservation
// residual is comfortably tight without risking non-convergence from
// floating-point noise).
func NewMassAction() *MassAction {
	return &MassAction{MaxIterations: 200, Tolerance: 1e-12}
}

// Solve implements ConcentrationSolver.
func (m *MassAction) Solve(composition [][]float64, logPfunc []float64, targetStrandConc []float64) ([]float64, error) {
	nComplexes := len(logPfunc)
	nStrands := len(targetStrandConc)
	if nComplexes == 0 {
		return nil, nil
	}
	for _, row := range composition {
		if len(row) != nStrands {
			return nil, fmt.Errorf("defect: composition row length %d does not match strand count %d", len(row), nStrands)
		}
	}
	for _, lq := range logPfunc {
		if math.IsNaN(lq) {
			return nil, fmt.Errorf("defect: log partition function contains NaN")
		}
		if math.IsInf(lq, 1) {
			return nil, fmt.Errorf("defect: log partition function contains +Inf")
		}
	}
	for _, tc := range targetStrandConc {
		if tc < 0 {
			return nil, fmt.Errorf("defect: target strand concentration must be non-negative")
		}
	}

	mu := make([]float64, nStrands)
	for s, tc := range targetStrandConc {
		if tc > 0 {
			mu[s] = math.Log(tc)
		} else {
			mu[s] = -700 // effectively zero concentration in log space
		}
	}

	complexConc := make([]float64, nComplexes)
	grad := make([]float64, nStrands)
	hess := make([][]float64, nStrands)
	for i := range hess {
		hess[i] = make([]float64, nStrands)
	}

	maxIter := m.MaxIterations
	if maxIter <= 0 {
		maxIter = 200
	}
	tol := m.Tolerance
	if tol <= 0 {
		tol = 1e-12
	}

	for iter := 0; iter < maxIter; iter++ {
		for c := 0; c < nComplexes; c++ {
			var dot float64
			for s := 0; s < nStrands; s++ {
				dot += composition[c][s] * mu[s]
			}
			complexConc[c] = math.Exp(dot + logPfunc[c])
		}

		for s := range grad {
			grad[s] = -targetStrandConc[s]
		}
		for i := range hess {
			for j := range hess[i] {
				hess[i][j] = 0
			}
		}
		for c := 0; c < nComplexes; c++ {
			cc := complexConc[c]
			for s := 0; s < nStrands; s++ {
				as := composition[c][s]
				if as == 0 {
					continue
				}
				grad[s] += as * cc
				for t := 0; t < nStrands; t++ {
					at := composition[c][t]
					if at == 0 {
						continue
					}
					hess[s][t] += as * at * cc
				}
			}
		}

		residual := 0.0
		for s := range grad {
			residual += grad[s] * grad[s]
		}
		if math.Sqrt(residual) < tol*(1+sumAbs(targetStrandConc)) {
			return complexConc, nil
		}

		for s := range hess {
			hess[s][s] += 1e-12 // Tikhonov regularization against a singular Hessian
		}
		negGrad := make([]float64, nStrands)
		for s := range grad {
			negGrad[s] = -grad[s]
		}
		delta, err := solveLinear(hess, negGrad)
		if err != nil {
			return nil, fmt.Errorf("defect: concentration solver failed: %w", err)
		}

		step := 1.0
		for step > 1e-8 {
			ok := true
			for s := range mu {
				if math.Abs(step*delta[s]) > 50 {
					ok = false
					break
				}
			}
			if ok {
				break
			}
			step /= 2
		}
		for s := range mu {
			mu[s] += step * delta[s]
		}
	}
	return complexConc, fmt.Errorf("defect: concentration solver did not converge within %d iterations", maxIter)
}

func sumAbs(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += math.Abs(v)
	}
	return total
}

// solveLinear solves A*x = b via Gaussian elimination with partial
// pivoting. A is square and modified in place on a copy; intended for
// the small (tens of strands) dense systems this solver produces.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
	}
	x := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		pivot := col
		maxVal := math.Abs(m[col][col])
		for row := col + 1; row < n; row++ {
			if v := math.Abs(m[row][col]); v > maxVal {
				pivot, maxVal = row, v
			}
		}
		if maxVal < 1e-300 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		m[col], m[pivot] = m[pivot], m[col]
		x[col], x[pivot] = x[pivot], x[col]

		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				m[row][k] -= factor * m[col][k]
			}
			x[row] -= factor * x[col]
		}
	}

	result := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := x[row]
		for k := row + 1; k < n; k++ {
			sum -= m[row][k] * result[k]
		}
		result[row] = sum / m[row][row]
	}
	return result, nil
}
