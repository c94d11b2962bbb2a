package sequence

import (
	"fmt"

	"github.com/TimothyStiles/nupack/base"
)

// DecompositionParameters are the per-complex hyperparameters that govern
// the decomposition tree: N_split, H_split, f_split.
type DecompositionParameters struct {
	MinSize      int     // N_split: minimum nucleotides retained in each child
	MinHelix     int     // H_split: minimum flanking helix padding
	MinPfuncFrac float64 // f_split: minimum partition function fraction captured by a split
}

// DefaultDecompositionParameters returns NUPACK's published defaults.
func DefaultDecompositionParameters() DecompositionParameters {
	return DecompositionParameters{MinSize: 6, MinHelix: 3, MinPfuncFrac: 0.99}
}

// Target binds a complex to a thermodynamic model and, optionally, a
// target secondary structure. A Target with a nil Structure describes an
// off-target complex in the exponential ensemble: it is still evaluated
// thermodynamically, it simply contributes no structural defect.
type Target struct {
	Model     string
	Structure *Structure
}

// HasStructure reports whether the target names a structure (on-target).
func (t Target) HasStructure() bool { return t.Structure != nil }

// Complex is a circular, rotation-equivalent ordered list of strand
// references.
type Complex struct {
	Name    string
	Strands []string
	Target  Target
	Bonus   float64 // added free-energy bonus (kcal/mol), e.g. for engineered constructs
	Params  DecompositionParameters

	// layout, resolved by Build
	Length       int
	strandRanges []Range
	domainRanges []Range
	domainNames  []string
}

// IsOnTarget reports whether the complex has a target structure.
func (c *Complex) IsOnTarget() bool { return c.Target.HasStructure() }

// Build resolves the complex's layout (nucleotide ranges per strand and
// per domain occurrence) against pool, and validates the invariants of
// the data model's invariants: len(structure) == sum(len(strand)); nick positions match
// strand boundaries; on-target structures are connected.
func (c *Complex) Build(pool *Pool) error {
	if len(c.Strands) == 0 {
		return fmt.Errorf("sequence: complex %q has no strands", c.Name)
	}
	offset := 0
	c.strandRanges = make([]Range, len(c.Strands))
	c.domainRanges = nil
	c.domainNames = nil
	for i, sn := range c.Strands {
		s, err := pool.Strand(sn)
		if err != nil {
			return fmt.Errorf("sequence: complex %q: %w", c.Name, err)
		}
		c.strandRanges[i] = Range{Start: offset, End: offset + s.Length}
		for j, dn := range s.Domains {
			r := s.Ranges[j]
			c.domainRanges = append(c.domainRanges, Range{Start: offset + r.Start, End: offset + r.End})
			c.domainNames = append(c.domainNames, dn)
		}
		offset += s.Length
	}
	c.Length = offset

	if c.Target.HasStructure() {
		st := c.Target.Structure
		if st.Len() != c.Length {
			return fmt.Errorf("sequence: complex %q: structure length %d != sequence length %d", c.Name, st.Len(), c.Length)
		}
		expectedNicks := c.expectedNicks()
		if !sameInts(st.Nicks, expectedNicks) {
			return fmt.Errorf("sequence: complex %q: structure nicks %v do not match strand boundaries %v", c.Name, st.Nicks, expectedNicks)
		}
		if !st.Connected() {
			return fmt.Errorf("sequence: complex %q: on-target structure must be connected", c.Name)
		}
	}
	return nil
}

func (c *Complex) expectedNicks() []int {
	nicks := make([]int, 0, len(c.strandRanges)-1)
	for i := 0; i < len(c.strandRanges)-1; i++ {
		nicks = append(nicks, c.strandRanges[i].End-1)
	}
	return nicks
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ResolveSequence materializes the complex's nucleotide sequence (without
// break sentinels) given a flat variable assignment.
func (c *Complex) ResolveSequence(pool *Pool, vars []base.Base) ([]base.Base, error) {
	out := make([]base.Base, 0, c.Length)
	for _, sn := range c.Strands {
		seq, err := pool.StrandSequence(sn, vars)
		if err != nil {
			return nil, fmt.Errorf("sequence: complex %q: %w", c.Name, err)
		}
		out = append(out, seq...)
	}
	return out, nil
}

// NickSequence inserts base.Break at every strand boundary, producing the
// sequence form the thermodynamic engine expects.
func (c *Complex) NickSequence(pool *Pool, vars []base.Base) ([]base.Base, error) {
	seq, err := c.ResolveSequence(pool, vars)
	if err != nil {
		return nil, err
	}
	return InsertBreaks(seq, c.expectedNicks()), nil
}

// InsertBreaks returns a copy of seq with base.Break inserted immediately
// after every nucleotide index listed in nicks.
func InsertBreaks(seq []base.Base, nicks []int) []base.Base {
	if len(nicks) == 0 {
		return append([]base.Base(nil), seq...)
	}
	out := make([]base.Base, 0, len(seq)+len(nicks))
	nickSet := make(map[int]bool, len(nicks))
	for _, n := range nicks {
		nickSet[n] = true
	}
	for i, b := range seq {
		out = append(out, b)
		if nickSet[i] {
			out = append(out, base.Break)
		}
	}
	return out
}

// ToIndices returns, for every nucleotide position in the complex's own
// sequence, the corresponding position in the flat pool variable array (for
// a complement domain position this is the underlying root domain's
// variable position it derives from) — used to project complex-local
// structural constraints and defects back onto the mutable sequence space.
func (c *Complex) ToIndices(pool *Pool) ([]int, error) {
	out := make([]int, 0, c.Length)
	for _, sn := range c.Strands {
		s, err := pool.Strand(sn)
		if err != nil {
			return nil, err
		}
		for _, dn := range s.Domains {
			d, err := pool.Domain(dn)
			if err != nil {
				return nil, err
			}
			if !d.IsComplement() {
				r, err := pool.VariableRange(dn)
				if err != nil {
					return nil, err
				}
				for i := r.Start; i < r.End; i++ {
					out = append(out, i)
				}
			} else {
				r, err := pool.VariableRange(d.Root)
				if err != nil {
					return nil, err
				}
				n := r.Len()
				for i := 0; i < n; i++ {
					out = append(out, r.End-1-i)
				}
			}
		}
	}
	return out, nil
}

// RotationalSymmetry returns the order of the cyclic symmetry group of the
// complex's strand ordering (1 for an asymmetric complex, k for a complex
// invariant under rotation by N/k strands, e.g. 2 for a homodimer A+A).
func (c *Complex) RotationalSymmetry() int {
	n := len(c.Strands)
	for period := 1; period < n; period++ {
		if n%period != 0 {
			continue
		}
		if isPeriod(c.Strands, period) {
			return n / period
		}
	}
	return 1
}

func isPeriod(strands []string, period int) bool {
	n := len(strands)
	for i := 0; i < n; i++ {
		if strands[i] != strands[(i+period)%n] {
			return false
		}
	}
	return true
}

// PositionStrandNames returns, for every nucleotide position in the
// complex's own sequence, the name of the strand occupying that
// position. Build must have been called first.
func (c *Complex) PositionStrandNames() []string {
	out := make([]string, c.Length)
	for i, r := range c.strandRanges {
		for pos := r.Start; pos < r.End; pos++ {
			out[pos] = c.Strands[i]
		}
	}
	return out
}

// PositionDomainNames returns, for every nucleotide position in the
// complex's own sequence, the name of the domain occurrence occupying
// that position (a complement domain's positions are named by the
// complement, e.g. "X*", not by its root). Build must have been called
// first.
func (c *Complex) PositionDomainNames() []string {
	out := make([]string, c.Length)
	for i, r := range c.domainRanges {
		for pos := r.Start; pos < r.End; pos++ {
			out[pos] = c.domainNames[i]
		}
	}
	return out
}
