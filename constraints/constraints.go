/*
Package constraints builds and satisfies the constraint-satisfaction
problem over a design's flat variable space: composition (per-position
degenerate masks), complementarity (domain pairs and on-target
structural base pairs), and pattern/word forbiddance.

Initialization and mutation both use bounded local search with random
restarts: clear a set of positions to their full mask, propagate
pairwise complementarity in index order, sample consistently, and on
conflict widen the cleared region and retry — following the
teacher's preference (seen throughout synthesis/fix) for a compiled
regexp over forbidden patterns rather than a hand-rolled matcher.
*/
package constraints

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/TimothyStiles/nupack/base"
	"github.com/TimothyStiles/nupack/nerr"
	"github.com/TimothyStiles/nupack/sequence"
)

// PairConstraint requires the flat variable positions I and J to be
// Watson-Crick (optionally +wobble) complementary.
type PairConstraint struct {
	I, J int
}

// Problem is a compiled constraint-satisfaction problem over a Pool's
// flat variable space.
type Problem struct {
	pool      *sequence.Pool
	masks     []base.Base
	pairs     []PairConstraint
	pairsAt   map[int][]int // position -> partner positions
	wobble    bool
	forbidden *regexp.Regexp
	maxTries  int
}

// Option configures a Problem at construction time.
type Option func(*Problem)

// WithForbiddenPatterns compiles a set of IUPAC-aware forbidden
// substrings (wildcard bases expand to character classes) into the
// problem. If doubleStranded is true, each pattern's reverse complement
// is also forbidden.
func WithForbiddenPatterns(patterns []string, doubleStranded bool) Option {
	return func(p *Problem) {
		re, err := patternsToRegexp(patterns, doubleStranded)
		if err == nil {
			p.forbidden = re
		}
	}
}

// WithMaxTries overrides the default bounded-retry budget (100).
func WithMaxTries(n int) Option {
	return func(p *Problem) { p.maxTries = n }
}

// NewProblem builds a Problem over pool's flat variable space, adding a
// structural PairConstraint for every on-target base pair of every
// complex (projected from complex-local indices to flat variable
// indices via Complex.ToIndices).
func NewProblem(pool *sequence.Pool, complexes []*sequence.Complex, wobble bool, opts ...Option) (*Problem, error) {
	n := pool.TotalLength()
	masks := make([]base.Base, n)
	for _, name := range pool.DomainNames() {
		r, err := pool.VariableRange(name)
		if err != nil {
			return nil, err
		}
		d, err := pool.Domain(name)
		if err != nil {
			return nil, err
		}
		copy(masks[r.Start:r.End], d.Pattern)
	}

	p := &Problem{pool: pool, masks: masks, wobble: wobble, maxTries: 100, pairsAt: make(map[int][]int)}

	for _, c := range complexes {
		if !c.IsOnTarget() {
			continue
		}
		idx, err := c.ToIndices(pool)
		if err != nil {
			return nil, fmt.Errorf("constraints: complex %q: %w", c.Name, err)
		}
		c.Target.Structure.ForEachPair(func(i, j int) {
			p.addPair(idx[i], idx[j])
		})
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Problem) addPair(a, b int) {
	if a == b {
		return
	}
	p.pairs = append(p.pairs, PairConstraint{I: a, J: b})
	p.pairsAt[a] = append(p.pairsAt[a], b)
	p.pairsAt[b] = append(p.pairsAt[b], a)
}

// Initialize produces a fully-assigned flat variable array satisfying
// every composition, complementarity, structural, and pattern
// constraint, using rng for all random choices.
func (p *Problem) Initialize(rng *rand.Rand) ([]base.Base, error) {
	for attempt := 0; attempt < p.maxTries; attempt++ {
		vars, ok := p.tryAssign(allPositions(len(p.masks)), nil, rng)
		if ok {
			return vars, nil
		}
	}
	return nil, nerr.Unsatisfiable
}

// Mutate attempts to resample the listed flat variable positions in
// vars while re-satisfying every constraint, expanding the cleared
// region on repeated conflict. It never mutates vars in place: on
// success it returns a new slice; on failure it returns
// (nil, nerr.MutationFailed) and vars is unchanged.
func (p *Problem) Mutate(vars []base.Base, positions []int, rng *rand.Rand) ([]base.Base, error) {
	fixed := make([]base.Base, len(vars))
	copy(fixed, vars)
	cleared := append([]int(nil), positions...)
	clearedSet := toSet(cleared)

	for attempt := 0; attempt < p.maxTries; attempt++ {
		result, ok := p.tryAssign(cleared, fixedExcept(fixed, clearedSet), rng)
		if ok {
			return result, nil
		}
		if attempt%10 == 9 {
			cleared = p.expand(cleared, clearedSet)
		}
	}
	return nil, nerr.MutationFailed
}

func fixedExcept(vars []base.Base, cleared map[int]bool) []base.Base {
	out := append([]base.Base(nil), vars...)
	for pos := range cleared {
		out[pos] = 0
	}
	return out
}

// expand widens the cleared region by one hop along the constraint
// graph (pulling in each cleared position's structural/complementarity
// partners), following the "extend the cleared region and
// retry" fail-soft rule.
func (p *Problem) expand(cleared []int, clearedSet map[int]bool) []int {
	next := append([]int(nil), cleared...)
	for _, pos := range cleared {
		for _, partner := range p.pairsAt[pos] {
			if !clearedSet[partner] {
				clearedSet[partner] = true
				next = append(next, partner)
			}
		}
	}
	return next
}

// tryAssign attempts one pass of ordered propagate-and-sample over the
// positions in cleared, given base (already-fixed elsewhere) values.
// It returns the full resulting assignment and whether every
// constraint (including the forbidden-pattern check) was satisfied.
func (p *Problem) tryAssign(cleared []int, base_ []base.Base, rng *rand.Rand) ([]base.Base, bool) {
	n := len(p.masks)
	vars := make([]base.Base, n)
	if base_ != nil {
		copy(vars, base_)
	}
	assigned := make([]bool, n)
	for i, b := range vars {
		if b != 0 {
			assigned[i] = true
		}
	}
	for _, pos := range cleared {
		allowed := p.masks[pos]
		for _, partner := range p.pairsAt[pos] {
			if assigned[partner] {
				allowed = allowed.Intersect(base.PairMask(vars[partner], p.wobble))
			}
		}
		if allowed == base.Gap {
			return nil, false
		}
		vars[pos] = allowed.Sample(rng)
		assigned[pos] = true
	}

	if p.forbidden != nil && !p.checkForbidden(vars) {
		return nil, false
	}
	return vars, true
}

func (p *Problem) checkForbidden(vars []base.Base) bool {
	for _, name := range p.pool.StrandNames() {
		seq, err := p.pool.StrandSequence(name, vars)
		if err != nil {
			continue
		}
		if p.forbidden.MatchString(base.FormatSequence(seq)) {
			return false
		}
	}
	return true
}

func allPositions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func toSet(positions []int) map[int]bool {
	s := make(map[int]bool, len(positions))
	for _, p := range positions {
		s[p] = true
	}
	return s
}

var patternTranslator = map[rune]string{
	'N': "[ACGU]", 'R': "[AG]", 'Y': "[CU]", 'S': "[GC]", 'W': "[AU]",
	'K': "[GU]", 'M': "[AC]", 'B': "[CGU]", 'D': "[AGU]", 'H': "[ACU]", 'V': "[ACG]",
}

// patternsToRegexp compiles a set of IUPAC degenerate patterns into a
// single alternation regexp, optionally also matching each pattern's
// reverse complement.
func patternsToRegexp(patterns []string, doubleStranded bool) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	var buf strings.Builder
	for i, pat := range patterns {
		if i != 0 {
			buf.WriteRune('|')
		}
		writePatternRegexp(&buf, pat)
		if doubleStranded {
			rc, err := reverseComplementPattern(pat)
			if err == nil && rc != pat {
				buf.WriteRune('|')
				writePatternRegexp(&buf, rc)
			}
		}
	}
	return regexp.Compile(buf.String())
}

func writePatternRegexp(buf *strings.Builder, pattern string) {
	buf.WriteString("(?:")
	for _, r := range pattern {
		if cls, ok := patternTranslator[r]; ok {
			buf.WriteString(cls)
		} else {
			buf.WriteRune(r)
		}
	}
	buf.WriteString(")")
}

func reverseComplementPattern(pattern string) (string, error) {
	bases, err := base.ParseSequence(pattern)
	if err != nil {
		return "", err
	}
	n := len(bases)
	out := make([]base.Base, n)
	for i, b := range bases {
		out[n-1-i] = b.Complement()
	}
	return base.FormatSequence(out), nil
}
