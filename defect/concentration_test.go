package defect

import (
	"math"
	"testing"
)

func TestMassActionSingleDuplexConservesStrandMass(t *testing.T) {
	// Two complexes over one strand "A": the monomer (composition [1]) and
	// the homodimer A+A (composition [2]). logPfunc favors the monomer
	// strongly, so at equilibrium concentration should sit close to the
	// target strand concentration with a small homodimer population.
	composition := [][]float64{{1}, {2}}
	logPfunc := []float64{0, -5} // homodimer disfavored
	target := []float64{1e-6}

	solver := NewMassAction()
	concs, err := solver.Solve(composition, logPfunc, target)
	if err != nil {
		t.Fatal(err)
	}
	if len(concs) != 2 {
		t.Fatalf("got %d concentrations, want 2", len(concs))
	}
	for _, c := range concs {
		if c < 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("concentration out of range: %v", c)
		}
	}
	// conservation: monomer + 2*dimer == target strand concentration
	total := concs[0] + 2*concs[1]
	if math.Abs(total-target[0])/target[0] > 1e-6 {
		t.Errorf("strand conservation violated: monomer+2*dimer=%v, want %v", total, target[0])
	}
}

func TestMassActionRejectsNaN(t *testing.T) {
	solver := NewMassAction()
	_, err := solver.Solve([][]float64{{1}}, []float64{math.NaN()}, []float64{1e-6})
	if err == nil {
		t.Error("expected error for NaN log partition function")
	}
}

func TestMassActionRejectsPositiveInf(t *testing.T) {
	solver := NewMassAction()
	_, err := solver.Solve([][]float64{{1}}, []float64{math.Inf(1)}, []float64{1e-6})
	if err == nil {
		t.Error("expected error for +Inf log partition function")
	}
}

func TestMassActionTwoStrandDuplex(t *testing.T) {
	// Strands A and B forming duplex AB; free A, free B, and AB complex.
	composition := [][]float64{
		{1, 0}, // free A
		{0, 1}, // free B
		{1, 1}, // duplex AB, strongly favored
	}
	logPfunc := []float64{0, 0, 20}
	target := []float64{1e-7, 1e-7}

	solver := NewMassAction()
	concs, err := solver.Solve(composition, logPfunc, target)
	if err != nil {
		t.Fatal(err)
	}
	// strand conservation for A and B
	totalA := concs[0] + concs[2]
	totalB := concs[1] + concs[2]
	if math.Abs(totalA-target[0])/target[0] > 1e-6 {
		t.Errorf("strand A conservation violated: %v, want %v", totalA, target[0])
	}
	if math.Abs(totalB-target[1])/target[1] > 1e-6 {
		t.Errorf("strand B conservation violated: %v, want %v", totalB, target[1])
	}
	// duplex strongly favored: most mass should be in AB
	if concs[2] < 0.9*target[0] {
		t.Errorf("expected duplex to dominate equilibrium, got duplex=%v target=%v", concs[2], target[0])
	}
}
