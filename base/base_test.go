package base

import (
	"math/rand"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	for code := range iupac {
		if code == 'T' {
			continue
		}
		b, err := Parse(code)
		if err != nil {
			t.Fatalf("Parse(%q): %v", code, err)
		}
		if got := b.String(); got != string(code) {
			t.Errorf("Parse(%q).String() = %q, want %q", code, got, string(code))
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse('Z'); err == nil {
		t.Error("Parse('Z') should have failed")
	}
}

func TestComplementSymmetry(t *testing.T) {
	cases := []struct {
		x, y  Base
		legal bool
	}{
		{A, U, true}, {U, A, true}, {C, G, true}, {G, C, true},
		{G, U, false}, {A, C, false},
	}
	for _, c := range cases {
		if got := CanPair(c.x, c.y, false); got != c.legal {
			t.Errorf("CanPair(%v,%v,false) = %v, want %v", c.x, c.y, got, c.legal)
		}
	}
	if !CanPair(G, U, true) || !CanPair(U, G, true) {
		t.Error("wobble should legalize G-U and U-G")
	}
}

func TestIntersectAndContains(t *testing.T) {
	n := N
	if !n.Contains(A) || !n.Contains(G) {
		t.Error("N should contain every grounded base")
	}
	r, _ := Parse('R') // A|G
	if got := r.Intersect(N); got != r {
		t.Errorf("R & N = %v, want %v", got, r)
	}
	if got := r.Intersect(C); got != Gap {
		t.Errorf("R & C = %v, want Gap", got)
	}
}

func TestSampleStaysInMask(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r, _ := Parse('R')
	for i := 0; i < 100; i++ {
		g := r.Sample(rng)
		if !r.Contains(g) {
			t.Fatalf("Sample() = %v not in mask %v", g, r)
		}
	}
}

func TestPairMask(t *testing.T) {
	n := Parse
	_ = n
	if got := PairMask(A, false); got != U {
		t.Errorf("PairMask(A,false) = %v, want U", got)
	}
	if got := PairMask(G, true); got != (C | U) {
		t.Errorf("PairMask(G,true) = %v, want C|U", got)
	}
}
