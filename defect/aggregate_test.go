package defect

import (
	"math"
	"testing"
)

func TestEvaluateTubeOnTargetOnly(t *testing.T) {
	// A single on-target duplex AB, perfectly folded (zero structural defect),
	// target concentration reached exactly by construction of logPfunc.
	entries := []ComplexEntry{
		{
			Composition:     []float64{1, 1},
			LogPfunc:        20,
			OnTarget:        true,
			TargetConc:      1e-7,
			NucleotideCount: 20,
			Defect:          Defect{}, // zero defect: perfectly on-target
		},
	}
	result, err := EvaluateTube(entries, NewMassAction())
	if err != nil {
		t.Fatal(err)
	}
	if result.NormalizedDefect < 0 || math.IsNaN(result.NormalizedDefect) {
		t.Fatalf("normalized defect out of range: %v", result.NormalizedDefect)
	}
	// a single strongly-favored on-target complex with zero structural
	// defect and negligible concentration shortfall should have a
	// normalized defect very close to zero.
	if result.NormalizedDefect > 1e-6 {
		t.Errorf("expected near-zero normalized defect for a well-folded on-target complex, got %v", result.NormalizedDefect)
	}
}

func TestEvaluateTubePenalizesStructuralDefect(t *testing.T) {
	clean := []ComplexEntry{{
		Composition: []float64{1, 1}, LogPfunc: 20, OnTarget: true,
		TargetConc: 1e-7, NucleotideCount: 20, Defect: Defect{},
	}}
	flawed := []ComplexEntry{{
		Composition: []float64{1, 1}, LogPfunc: 20, OnTarget: true,
		TargetConc: 1e-7, NucleotideCount: 20,
		Defect: New([]float64{0.5, 0.5}),
	}}
	cleanResult, err := EvaluateTube(clean, NewMassAction())
	if err != nil {
		t.Fatal(err)
	}
	flawedResult, err := EvaluateTube(flawed, NewMassAction())
	if err != nil {
		t.Fatal(err)
	}
	if flawedResult.NormalizedDefect <= cleanResult.NormalizedDefect {
		t.Errorf("expected structural defect to raise normalized defect: clean=%v flawed=%v", cleanResult.NormalizedDefect, flawedResult.NormalizedDefect)
	}
}

func TestEvaluateTubeRejectsMismatchedCompositionLength(t *testing.T) {
	entries := []ComplexEntry{
		{Composition: []float64{1, 1}, LogPfunc: 0, OnTarget: true, TargetConc: 1e-7, NucleotideCount: 10},
		{Composition: []float64{1}, LogPfunc: 0, OnTarget: false, NucleotideCount: 5},
	}
	if _, err := EvaluateTube(entries, NewMassAction()); err == nil {
		t.Error("expected error for mismatched composition row length")
	}
}

func TestDesignNormalizedDefectWeightedAverage(t *testing.T) {
	tubes := []TubeResult{{NormalizedDefect: 0.1}, {NormalizedDefect: 0.3}}
	got, err := DesignNormalizedDefect(tubes, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.2) > 1e-9 {
		t.Errorf("DesignNormalizedDefect() = %v, want 0.2", got)
	}
	weighted, err := DesignNormalizedDefect(tubes, []float64{3, 1})
	if err != nil {
		t.Fatal(err)
	}
	want := (3*0.1 + 1*0.3) / 4
	if math.Abs(weighted-want) > 1e-9 {
		t.Errorf("weighted DesignNormalizedDefect() = %v, want %v", weighted, want)
	}
}
