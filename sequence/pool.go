/*
Package sequence holds the design's data model: domains, strands, and
complexes, the nucleotide-index bookkeeping that maps between them, and the
target Structure/Tube/Weight types of the input specification.

A Domain is declared once, with a fixed-length pattern of degenerate bases.
Its Watson-Crick complement `X*` is never declared directly — it is
materialized the first time a Strand references it, and is immutable
thereafter, matching the "declared before sequence materialization"
lifecycle the core design requires.
*/
package sequence

import (
	"fmt"
	"strings"

	"github.com/TimothyStiles/nupack/base"
)

// Domain is a named, fixed-length pattern of allowed bases. Root is empty
// for an independently-declared domain; for a lazily materialized
// complement `X*` it names the root domain `X` whose variables it derives
// from (reversed and complemented), so `X*` never holds independent
// mutable state of its own.
type Domain struct {
	Name    string
	Pattern []base.Base
	Root    string
}

// IsComplement reports whether d derives its bases from a root domain.
func (d *Domain) IsComplement() bool { return d.Root != "" }

// Len returns the domain's fixed length.
func (d *Domain) Len() int { return len(d.Pattern) }

// Range is a half-open interval [Start, End) of nucleotide indices.
type Range struct{ Start, End int }

// Len returns the number of nucleotides spanned by the range.
func (r Range) Len() int { return r.End - r.Start }

// Strand is an ordered, name-addressable list of domain references.
type Strand struct {
	Name    string
	Domains []string
	Ranges  []Range // domain-local ranges within the strand, set by Pool.Build
	Length  int
}

// Pool is the registry of declared domains and strands shared by every
// complex in a design. It lazily materializes domain complements the first
// time a strand references `X*` for a declared domain `X`.
type Pool struct {
	domains     map[string]*Domain
	domainOrder []string // root (independently declared) domains only
	complements []string // lazily materialized complement domains
	strands     map[string]*Strand
	strandOrder []string
	variableAt  map[string]Range // root domain name -> flat variable range
	Wobble      bool             // whether complementarity constraints admit G-U wobble
}

// NewPool creates an empty domain/strand registry.
func NewPool(wobble bool) *Pool {
	return &Pool{
		domains: make(map[string]*Domain),
		strands: make(map[string]*Strand),
		Wobble:  wobble,
	}
}

// AddDomain declares a new domain with the given IUPAC pattern.
func (p *Pool) AddDomain(name, pattern string) (*Domain, error) {
	if _, exists := p.domains[name]; exists {
		return nil, fmt.Errorf("sequence: domain %q already declared", name)
	}
	if strings.HasSuffix(name, "*") {
		return nil, fmt.Errorf("sequence: domain name %q must not end in '*' (that suffix is reserved for complements)", name)
	}
	bases, err := base.ParseSequence(pattern)
	if err != nil {
		return nil, fmt.Errorf("sequence: domain %q: %w", name, err)
	}
	d := &Domain{Name: name, Pattern: bases}
	p.domains[name] = d
	p.domainOrder = append(p.domainOrder, name)
	return d, nil
}

// Domain looks up a declared or lazily-materialized complement domain by
// name (`X` or `X*`).
func (p *Pool) Domain(name string) (*Domain, error) {
	if d, ok := p.domains[name]; ok {
		return d, nil
	}
	if strings.HasSuffix(name, "*") {
		rootName := strings.TrimSuffix(name, "*")
		root, ok := p.domains[rootName]
		if !ok {
			return nil, fmt.Errorf("sequence: complement of undeclared domain %q", rootName)
		}
		comp := &Domain{Name: name, Pattern: complementPattern(root.Pattern, p.Wobble), Root: rootName}
		p.domains[name] = comp
		p.complements = append(p.complements, name)
		return comp, nil
	}
	return nil, fmt.Errorf("sequence: undeclared domain %q", name)
}

func complementPattern(pattern []base.Base, wobble bool) []base.Base {
	n := len(pattern)
	out := make([]base.Base, n)
	for i, b := range pattern {
		out[n-1-i] = base.PairMask(b, wobble)
	}
	return out
}

// AddStrand declares a new strand from an ordered list of domain names
// (each may be a bare domain or its `X*` complement).
func (p *Pool) AddStrand(name string, domainNames []string) (*Strand, error) {
	if _, exists := p.strands[name]; exists {
		return nil, fmt.Errorf("sequence: strand %q already declared", name)
	}
	if len(domainNames) == 0 {
		return nil, fmt.Errorf("sequence: strand %q has no domains", name)
	}
	ranges := make([]Range, len(domainNames))
	offset := 0
	for i, dn := range domainNames {
		d, err := p.Domain(dn)
		if err != nil {
			return nil, fmt.Errorf("sequence: strand %q: %w", name, err)
		}
		ranges[i] = Range{Start: offset, End: offset + d.Len()}
		offset += d.Len()
	}
	s := &Strand{Name: name, Domains: append([]string(nil), domainNames...), Ranges: ranges, Length: offset}
	p.strands[name] = s
	p.strandOrder = append(p.strandOrder, name)
	return s, nil
}

// Strand looks up a declared strand by name.
func (p *Pool) Strand(name string) (*Strand, error) {
	s, ok := p.strands[name]
	if !ok {
		return nil, fmt.Errorf("sequence: undeclared strand %q", name)
	}
	return s, nil
}

// DomainNames returns declared domain names in declaration order (lazily
// materialized complements are not included, since they are not
// independently declared variables).
func (p *Pool) DomainNames() []string { return append([]string(nil), p.domainOrder...) }

// StrandNames returns declared strand names in declaration order.
func (p *Pool) StrandNames() []string { return append([]string(nil), p.strandOrder...) }

// TotalLength returns the sum of lengths of every declared domain's
// grounded positions, i.e. the number of independent nucleotide variables
// once complement domains are excluded (a complement domain's bases are not
// independent variables: they are always derived from their root domain by
// the complementarity constraint).
func (p *Pool) TotalLength() int {
	n := 0
	for _, name := range p.domainOrder {
		n += p.domains[name].Len()
	}
	return n
}

// VariableRange returns the flat-variable-array range occupied by the
// independent positions of root domain name. It is an error to call this
// for a complement domain, which has no independent positions of its own.
func (p *Pool) VariableRange(name string) (Range, error) {
	d, ok := p.domains[name]
	if !ok {
		return Range{}, fmt.Errorf("sequence: undeclared domain %q", name)
	}
	if d.IsComplement() {
		return Range{}, fmt.Errorf("sequence: %q is a complement domain and has no independent variables", name)
	}
	if p.variableAt == nil {
		p.buildVariableRanges()
	}
	r, ok := p.variableAt[name]
	if !ok {
		return Range{}, fmt.Errorf("sequence: domain %q has no assigned variable range", name)
	}
	return r, nil
}

func (p *Pool) buildVariableRanges() {
	p.variableAt = make(map[string]Range, len(p.domainOrder))
	offset := 0
	for _, name := range p.domainOrder {
		n := p.domains[name].Len()
		p.variableAt[name] = Range{Start: offset, End: offset + n}
		offset += n
	}
}

// Resolve returns the actual bases occupying domain name (root or
// complement) given the flat array of independent variable assignments
// vars (length TotalLength()). A complement domain's bases are derived by
// reversing and complementing its root domain's assigned variables.
func (p *Pool) Resolve(name string, vars []base.Base) ([]base.Base, error) {
	d, ok := p.domains[name]
	if !ok {
		return nil, fmt.Errorf("sequence: undeclared domain %q", name)
	}
	if !d.IsComplement() {
		r, err := p.VariableRange(name)
		if err != nil {
			return nil, err
		}
		return append([]base.Base(nil), vars[r.Start:r.End]...), nil
	}
	rootVars, err := p.Resolve(d.Root, vars)
	if err != nil {
		return nil, err
	}
	n := len(rootVars)
	out := make([]base.Base, n)
	for i, b := range rootVars {
		out[n-1-i] = base.PairMask(b, p.Wobble)
	}
	return out, nil
}

// PositionDomain returns the name of the root domain owning flat variable
// position pos, and the position's offset within that domain.
func (p *Pool) PositionDomain(pos int) (name string, offset int, err error) {
	if p.variableAt == nil {
		p.buildVariableRanges()
	}
	for _, n := range p.domainOrder {
		r := p.variableAt[n]
		if pos >= r.Start && pos < r.End {
			return n, pos - r.Start, nil
		}
	}
	return "", 0, fmt.Errorf("sequence: position %d out of range [0,%d)", pos, p.TotalLength())
}

// StrandSequence resolves the full nucleotide sequence of a declared strand.
func (p *Pool) StrandSequence(strandName string, vars []base.Base) ([]base.Base, error) {
	s, err := p.Strand(strandName)
	if err != nil {
		return nil, err
	}
	out := make([]base.Base, 0, s.Length)
	for _, dn := range s.Domains {
		resolved, err := p.Resolve(dn, vars)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}
	return out, nil
}
