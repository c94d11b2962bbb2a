package defect

import (
	"math"
	"math/rand"
	"testing"

	"github.com/TimothyStiles/nupack/sequence"
)

func TestNewFiltersNonPositive(t *testing.T) {
	d := New([]float64{0, 0.5, -0.1, 0, 0.25})
	if len(d.Contributions) != 2 {
		t.Fatalf("got %d contributions, want 2", len(d.Contributions))
	}
	if d.Contributions[0].Index != 1 || d.Contributions[1].Index != 4 {
		t.Errorf("unexpected contribution indices: %+v", d.Contributions)
	}
}

func TestTotal(t *testing.T) {
	d := New([]float64{0.1, 0.2, 0.3})
	if math.Abs(d.Total()-0.6) > 1e-9 {
		t.Errorf("Total() = %v, want 0.6", d.Total())
	}
}

func TestScaledAndWeighted(t *testing.T) {
	d := New([]float64{1, 2})
	scaled := d.Scaled(2)
	if scaled.Contributions[0].Value != 2 || scaled.Contributions[1].Value != 4 {
		t.Errorf("Scaled() = %+v", scaled.Contributions)
	}
	weighted, err := d.Weighted([]float64{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if weighted.Contributions[0].Value != 3 || weighted.Contributions[1].Value != 8 {
		t.Errorf("Weighted() = %+v", weighted.Contributions)
	}
	if _, err := d.Weighted([]float64{1}); err == nil {
		t.Error("expected error for mismatched weight length")
	}
}

func TestReducedMergesDuplicateIndices(t *testing.T) {
	d := Defect{Contributions: []Contribution{{Index: 2, Value: 0.3}, {Index: 5, Value: 0.1}, {Index: 2, Value: 0.4}}}
	r := d.Reduced()
	if len(r.Contributions) != 2 {
		t.Fatalf("got %d contributions after reduce, want 2", len(r.Contributions))
	}
	for _, c := range r.Contributions {
		if c.Index == 2 && math.Abs(c.Value-0.7) > 1e-9 {
			t.Errorf("merged contribution at index 2 = %v, want 0.7", c.Value)
		}
	}
}

func TestSampleNucleotidesReturnsAllWhenNotMoreThanAvailable(t *testing.T) {
	d := New([]float64{0.1, 0.2, 0.3})
	rng := rand.New(rand.NewSource(1))
	got := d.SampleNucleotides(5, rng)
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
}

func TestSampleNucleotidesNoReplacement(t *testing.T) {
	d := New([]float64{0.9, 0.05, 0.05, 0.9, 0.1})
	rng := rand.New(rand.NewSource(2))
	got := d.SampleNucleotides(3, rng)
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	seen := make(map[int]bool)
	for _, idx := range got {
		if seen[idx] {
			t.Fatalf("index %d sampled more than once", idx)
		}
		seen[idx] = true
	}
}

func TestNucleotideDefectsPerfectStructureIsZero(t *testing.T) {
	st, err := sequence.NewStructure([]int{1, 0, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	probs := [][]float64{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 1},
	}
	d := NucleotideDefects(probs, st)
	if len(d.Contributions) != 0 {
		t.Errorf("expected no positive defect contributions for a perfectly matched ensemble, got %+v", d.Contributions)
	}
}

func TestNucleotideDefectsPartialMismatch(t *testing.T) {
	st, err := sequence.NewStructure([]int{1, 0, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	probs := [][]float64{
		{0.2, 0.8, 0},
		{0.8, 0.2, 0},
		{0, 0, 0.7},
	}
	d := NucleotideDefects(probs, st)
	total := d.Total()
	want := 0.2 + 0.2 + 0.3
	if math.Abs(total-want) > 1e-9 {
		t.Errorf("total defect = %v, want %v", total, want)
	}
}

func TestProjectReducesRepeatedIndices(t *testing.T) {
	d := New([]float64{0.1, 0.2, 0.3})
	toIndices := []int{5, 5, 7}
	p := Project(d, toIndices)
	if len(p.Contributions) != 2 {
		t.Fatalf("got %d contributions, want 2", len(p.Contributions))
	}
	for _, c := range p.Contributions {
		if c.Index == 5 && math.Abs(c.Value-0.3) > 1e-9 {
			t.Errorf("projected contribution at index 5 = %v, want 0.3", c.Value)
		}
		if c.Index == 7 && math.Abs(c.Value-0.3) > 1e-9 {
			t.Errorf("projected contribution at index 7 = %v, want 0.3", c.Value)
		}
	}
}
