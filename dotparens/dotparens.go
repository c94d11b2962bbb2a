/*
Package dotparens parses and formats dot-parens-plus (DPP) secondary
structure strings into and out of sequence.Structure.

DPP uses four symbols: '(' and ')' for a base pair, '.' for an unpaired
base, and '+' for a strand break. A structure may optionally be
run-length encoded, e.g. "(3+.4)3" expands to "(((+....)))" — every
symbol except '+' may be followed by a repeat count; '+' is never
run-encoded since a strand break has no multiplicity.
*/
package dotparens

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TimothyStiles/nupack/sequence"
)

// Expand converts a (possibly run-length encoded) DPP string into its
// fully expanded single-character-per-position form.
func Expand(dpp string) (string, error) {
	var out strings.Builder
	runes := []rune(dpp)
	for i := 0; i < len(runes); {
		c := runes[i]
		if !isDPPSymbol(c) {
			return "", fmt.Errorf("dotparens: invalid symbol %q at position %d", c, i)
		}
		i++
		count := 1
		if c != '+' {
			start := i
			for i < len(runes) && isDigit(runes[i]) {
				i++
			}
			if i > start {
				n, err := strconv.Atoi(string(runes[start:i]))
				if err != nil {
					return "", fmt.Errorf("dotparens: invalid repeat count at position %d: %w", start, err)
				}
				count = n
			}
		}
		for k := 0; k < count; k++ {
			out.WriteRune(c)
		}
	}
	return out.String(), nil
}

func isDPPSymbol(c rune) bool {
	return c == '(' || c == ')' || c == '.' || c == '+'
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

// Parse expands and parses a DPP string (run-length encoded or not) into
// a sequence.Structure. Strand breaks ('+') are recorded as nick
// positions and removed from the nucleotide index space.
func Parse(dpp string) (*sequence.Structure, error) {
	expanded, err := Expand(dpp)
	if err != nil {
		return nil, err
	}
	var pairs []int
	var nicks []int
	var stack []int
	pos := 0
	for i, c := range expanded {
		switch c {
		case '(':
			stack = append(stack, pos)
			pairs = append(pairs, -1)
			pos++
		case ')':
			if len(stack) == 0 {
				return nil, fmt.Errorf("dotparens: unbalanced ')' at symbol %d", i)
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			pairs[open] = pos
			pairs = append(pairs, open)
			pos++
		case '.':
			pairs = append(pairs, pos)
			pos++
		case '+':
			if pos == 0 || (len(nicks) > 0 && nicks[len(nicks)-1] == pos-1) {
				return nil, fmt.Errorf("dotparens: strand break at symbol %d not between two nucleotides", i)
			}
			nicks = append(nicks, pos-1)
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("dotparens: unbalanced '(' in %q", dpp)
	}
	return sequence.NewStructure(pairs, nicks)
}

// Format renders a Structure as an expanded (non-run-length-encoded) DPP
// string.
func Format(s *sequence.Structure) string {
	var out strings.Builder
	nickSet := make(map[int]bool, len(s.Nicks))
	for _, n := range s.Nicks {
		nickSet[n] = true
	}
	for i := 0; i < s.Len(); i++ {
		j := s.Pairs[i]
		switch {
		case j == i:
			out.WriteByte('.')
		case j > i:
			out.WriteByte('(')
		default:
			out.WriteByte(')')
		}
		if nickSet[i] {
			out.WriteByte('+')
		}
	}
	return out.String()
}

// FormatRLE renders a Structure as a run-length encoded DPP string: any
// maximal run of 2 or more identical non-'+' symbols is collapsed to
// `<symbol><count>`.
func FormatRLE(s *sequence.Structure) string {
	expanded := Format(s)
	var out strings.Builder
	runes := []rune(expanded)
	for i := 0; i < len(runes); {
		c := runes[i]
		if c == '+' {
			out.WriteRune(c)
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && runes[j] == c {
			j++
		}
		run := j - i
		out.WriteRune(c)
		if run > 1 {
			out.WriteString(strconv.Itoa(run))
		}
		i = j
	}
	return out.String()
}
