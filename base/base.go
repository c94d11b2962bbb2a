/*
Package base provides the degenerate-base alphabet used throughout the
sequence designer: a 4-bit mask over {A, C, G, U} (IUPAC ambiguity codes),
plus a sentinel for a strand break.

Overview

A Base is not a single nucleotide but a *mask* of which nucleotides are
allowed at a position. `N` is the mask with all four bits set. A grounded,
non-degenerate base like `A` has exactly one bit set. Masks compose with
set intersection (`Base.Intersect`), which is how the constraint layer
narrows a position's allowed set as constraints are applied.
*/
package base

import (
	"fmt"
	"math/rand"
	"strings"
)

// Base is a 4-bit mask over {A, C, G, U}. Bit 4 is reserved for Break, the
// strand-break sentinel, which never participates in masking arithmetic
// with the nucleotide bits.
type Base uint8

const (
	// BitA, BitC, BitG, BitU are the individual nucleotide bits.
	BitA Base = 1 << iota
	BitC
	BitG
	BitU
	bitBreak
)

const (
	// Gap is the zero mask: no allowed base. Intersections collapse to Gap
	// on conflict.
	Gap Base = 0
	// A, C, G, U are the four grounded nucleotides.
	A Base = BitA
	C Base = BitC
	G Base = BitG
	U Base = BitU
	// N is any base: the fully degenerate mask.
	N Base = BitA | BitC | BitG | BitU
	// Break marks a strand boundary (the `+` in dot-parens-plus notation).
	// It is never part of a nucleotide mask.
	Break Base = bitBreak
)

// iupac maps the 16 nucleotide ambiguity codes (IUPAC) to their masks, plus
// the strand-break sentinel `_`. T is accepted as a synonym for U so DNA and
// RNA domain specs can share one alphabet; sequences are materialized as RNA
// bases internally and rendered back with the caller's requested alphabet.
var iupac = map[byte]Base{
	'A': A, 'C': C, 'G': G, 'U': U, 'T': U,
	'R': A | G, 'Y': C | U, 'S': C | G, 'W': A | U,
	'K': G | U, 'M': A | C,
	'B': C | G | U, 'D': A | G | U, 'H': A | C | U, 'V': A | C | G,
	'N': N,
	'_': Break,
}

var reverseIUPAC = buildReverseIUPAC()

func buildReverseIUPAC() map[Base]byte {
	rev := make(map[Base]byte, len(iupac))
	for code, mask := range iupac {
		if code == 'T' {
			continue // prefer U as the canonical code for the U mask
		}
		if existing, ok := rev[mask]; !ok || code < existing {
			rev[mask] = code
		}
	}
	return rev
}

// Parse decodes a single IUPAC ambiguity code (case-insensitive) into a
// Base mask.
func Parse(code byte) (Base, error) {
	b, ok := iupac[upperByte(code)]
	if !ok {
		return Gap, fmt.Errorf("base: unrecognized IUPAC code %q", code)
	}
	return b, nil
}

// ParseSequence decodes a string of IUPAC codes into a slice of Base masks.
func ParseSequence(s string) ([]Base, error) {
	out := make([]Base, len(s))
	for i := 0; i < len(s); i++ {
		b, err := Parse(s[i])
		if err != nil {
			return nil, fmt.Errorf("base: position %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func upperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

// String renders the Base as its canonical IUPAC code.
func (b Base) String() string {
	if code, ok := reverseIUPAC[b]; ok {
		return string(code)
	}
	return "?"
}

// FormatSequence renders a slice of Base as a string.
func FormatSequence(seq []Base) string {
	var sb strings.Builder
	sb.Grow(len(seq))
	for _, b := range seq {
		sb.WriteString(b.String())
	}
	return sb.String()
}

// IsBreak reports whether b is the strand-break sentinel.
func (b Base) IsBreak() bool { return b == Break }

// Grounded reports whether the mask selects exactly one nucleotide.
func (b Base) Grounded() bool {
	return b != Gap && b&(b-1) == 0 && !b.IsBreak()
}

// Intersect returns the mask containing bases allowed by both b and other.
func (b Base) Intersect(other Base) Base { return b & other }

// Contains reports whether mask b allows the grounded base g.
func (b Base) Contains(g Base) bool { return b&g == g && g != Gap }

// Count returns the number of grounded bases allowed by the mask.
func (b Base) Count() int {
	n := 0
	for m := b; m != 0; m &= m - 1 {
		n++
	}
	return n
}

// Options returns the grounded bases allowed by the mask, in A,C,G,U order.
func (b Base) Options() []Base {
	var out []Base
	for _, g := range [...]Base{A, C, G, U} {
		if b.Contains(g) {
			out = append(out, g)
		}
	}
	return out
}

// Sample draws a uniformly random grounded base from the mask using rng.
// It panics if the mask has no options, which indicates a constraint bug
// further up the call stack (an empty mask should have been rejected at
// propagation time, not sampled from).
func (b Base) Sample(rng *rand.Rand) Base {
	opts := b.Options()
	if len(opts) == 0 {
		panic("base: Sample called on empty mask")
	}
	return opts[rng.Intn(len(opts))]
}

// watsonCrick maps a grounded base to its Watson-Crick complement.
var watsonCrick = map[Base]Base{A: U, U: A, C: G, G: C}

// wobble additionally allows G-U wobble pairs.
var wobblePartners = map[Base]Base{G: U, U: G}

// Complement returns the Watson-Crick complement mask of b: the union of
// WC complements of every grounded base allowed by b.
func (b Base) Complement() Base {
	var out Base
	for _, g := range b.Options() {
		out |= watsonCrick[g]
	}
	return out
}

// CanPair reports whether grounded bases x and y form a legal pair under
// the configured alphabet. With wobble disabled only Watson-Crick pairs
// are legal; with wobble enabled G-U/U-G are additionally legal.
func CanPair(x, y Base, wobble bool) bool {
	if !x.Grounded() || !y.Grounded() {
		return false
	}
	if watsonCrick[x] == y {
		return true
	}
	if wobble {
		if p, ok := wobblePartners[x]; ok && p == y {
			return true
		}
	}
	return false
}

// PairMask returns the mask of bases that legally pair with some grounded
// base allowed by x, under the configured alphabet.
func PairMask(x Base, wobble bool) Base {
	var out Base
	for _, g := range x.Options() {
		out |= watsonCrick[g]
		if wobble {
			if p, ok := wobblePartners[g]; ok {
				out |= p
			}
		}
	}
	return out
}
