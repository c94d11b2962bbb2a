package sequence

import "fmt"

// Structure is a target secondary structure: a pair list over nucleotide
// indices (Pairs[i] == i means unpaired) plus the nick positions implied by
// strand boundaries. Pairs and Nicks are both expressed in nucleotide-index
// space, which never counts strand-break sentinels.
type Structure struct {
	Pairs []int
	Nicks []int // nucleotide index of the last base of every strand but the last
}

// NewStructure validates and builds a Structure from a raw pair list and
// nick list.
func NewStructure(pairs []int, nicks []int) (*Structure, error) {
	s := &Structure{Pairs: append([]int(nil), pairs...), Nicks: append([]int(nil), nicks...)}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of nucleotides in the structure.
func (s *Structure) Len() int { return len(s.Pairs) }

// Validate checks the pair-list involution invariant (pairs[pairs[i]]==i)
// and that nicks are sorted, in range, and strictly increasing.
func (s *Structure) Validate() error {
	n := len(s.Pairs)
	for i, j := range s.Pairs {
		if j < 0 || j >= n {
			return fmt.Errorf("sequence: pair index %d out of range at position %d", j, i)
		}
		if s.Pairs[j] != i {
			return fmt.Errorf("sequence: pair list is not an involution at (%d,%d)", i, j)
		}
	}
	last := -1
	for _, nick := range s.Nicks {
		if nick <= last || nick < 0 || nick >= n {
			return fmt.Errorf("sequence: nicks must be sorted, in range, and distinct: %v", s.Nicks)
		}
		last = nick
	}
	return nil
}

// IsPaired reports whether nucleotide i participates in a base pair.
func (s *Structure) IsPaired(i int) bool { return s.Pairs[i] != i }

// ForEachPair calls f once for every base pair (i,j) with i<j.
func (s *Structure) ForEachPair(f func(i, j int)) {
	for i, j := range s.Pairs {
		if j > i {
			f(i, j)
		}
	}
}

// Connected reports whether the structure's pairing, together with its
// nicks treated as joints, forms a single connected complex: every strand
// must be reachable from strand 0 by following at least one base pair that
// crosses a nick. A structure with a single strand (no nicks) is trivially
// connected.
func (s *Structure) Connected() bool {
	nStrands := len(s.Nicks) + 1
	if nStrands == 1 {
		return true
	}
	strandOf := s.strandIndexFunc()
	adjacency := make([][]bool, nStrands)
	for i := range adjacency {
		adjacency[i] = make([]bool, nStrands)
	}
	s.ForEachPair(func(i, j int) {
		si, sj := strandOf(i), strandOf(j)
		if si != sj {
			adjacency[si][sj] = true
			adjacency[sj][si] = true
		}
	})
	seen := make([]bool, nStrands)
	stack := []int{0}
	seen[0] = true
	count := 1
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := 0; next < nStrands; next++ {
			if adjacency[cur][next] && !seen[next] {
				seen[next] = true
				count++
				stack = append(stack, next)
			}
		}
	}
	return count == nStrands
}

func (s *Structure) strandIndexFunc() func(i int) int {
	return func(i int) int {
		strand := 0
		for _, nick := range s.Nicks {
			if i > nick {
				strand++
			} else {
				break
			}
		}
		return strand
	}
}

// rotated returns the Structure obtained by rotating nucleotide indices by
// k positions (as if the complex's strands were cyclically permuted by the
// rotation implied by k), recomputing pairs and nicks in the rotated index
// space. Used only for equality/canonicalization, not on any hot path.
func (s *Structure) rotated(k int) *Structure {
	n := s.Len()
	if n == 0 {
		return s
	}
	k = ((k % n) + n) % n
	newPairs := make([]int, n)
	for i, j := range s.Pairs {
		newPairs[(i+n-k)%n] = (j + n - k) % n
	}
	newNicks := make([]int, 0, len(s.Nicks))
	for _, nick := range s.Nicks {
		newNicks = append(newNicks, (nick+n-k)%n)
	}
	sortInts(newNicks)
	return &Structure{Pairs: newPairs, Nicks: newNicks}
}

func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// CanonicalRotation returns the lexicographically smallest rotation of the
// structure's pair list, the rotation amount it corresponds to, and the
// rotational symmetry order (how many distinct rotations are cyclic
// offsets that reproduce the identical pair list; 1 for an asymmetric
// structure). Intended for small structures (used for off-target caching
// and test fixtures), so the brute-force O(n^2) scan is preferred over a
// linear-time string-rotation algorithm for clarity.
func (s *Structure) CanonicalRotation() (canonical *Structure, rotation int, symmetry int) {
	n := s.Len()
	if n == 0 {
		return s, 0, 1
	}
	canonical = s
	rotation = 0
	symmetry = 0
	for k := 0; k < n; k++ {
		cand := s.rotated(k)
		if k == 0 || lessPairList(cand.Pairs, canonical.Pairs) {
			canonical, rotation = cand, k
		}
		if samePairList(cand.Pairs, s.Pairs) {
			symmetry++
		}
	}
	return canonical, rotation, symmetry
}

func lessPairList(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func samePairList(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two structures are equivalent up to rotation: their
// lowest (canonical) rotations agree.
func (s *Structure) Equal(other *Structure) bool {
	if s.Len() != other.Len() {
		return false
	}
	ac, _, _ := s.CanonicalRotation()
	bc, _, _ := other.CanonicalRotation()
	return samePairList(ac.Pairs, bc.Pairs)
}
