// Package ioformat reads and writes the JSON documents this module's
// command line tool accepts and produces: a design specification on the
// way in, and an archive of Pareto-optimal results on the way out.
//
// It follows the io/json package's shape: plain structs tagged for
// encoding/json, a Parse/Read/Write trio per document shape, with no
// attempt at streaming or schema versioning.
package ioformat

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/TimothyStiles/nupack/design"
	"github.com/TimothyStiles/nupack/dotparens"
	"github.com/TimothyStiles/nupack/sequence"
)

// DomainDoc is one named domain pattern, e.g. {"name": "a", "pattern": "NNNNNNNN"}.
type DomainDoc struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
}

// StrandDoc is a strand assembled from an ordered list of domain names
// (a trailing "*" denotes the Watson-Crick complement of a domain
// defined elsewhere in the same document).
type StrandDoc struct {
	Name    string   `json:"name"`
	Domains []string `json:"domains"`
}

// ComplexDoc is one complex: an ordered list of strands, and, for
// on-target complexes, the target secondary structure in dot-parens-plus
// notation and the energy model to fold it under. Off-target complexes
// (used only to populate a tube's competing-species ensemble) omit
// Structure and Model.
type ComplexDoc struct {
	Name      string  `json:"name"`
	Strands   []string `json:"strands"`
	Structure string  `json:"structure,omitempty"`
	Model     string  `json:"model,omitempty"`
	Bonus     float64 `json:"bonus,omitempty"`
}

// TubeEntryDoc references a complex by name with its target concentration, in molar.
type TubeEntryDoc struct {
	Complex    string  `json:"complex"`
	TargetConc float64 `json:"target_conc"`
}

// TubeDoc is a named test tube: the on-target complexes it contains and
// their target concentrations. Off-target complexes are discovered
// automatically from shared strands, not listed here.
type TubeDoc struct {
	Name    string         `json:"name"`
	Entries []TubeEntryDoc `json:"entries"`
}

// WeightDoc scopes a per-nucleotide defect multiplier to a tube,
// complex, strand, and/or domain; omitted fields mean "every instance".
type WeightDoc struct {
	Tube       string  `json:"tube,omitempty"`
	Complex    string  `json:"complex,omitempty"`
	Strand     string  `json:"strand,omitempty"`
	Domain     string  `json:"domain,omitempty"`
	Multiplier float64 `json:"multiplier"`
}

// SpecDoc is the top-level document accepted by nupack-design.
type SpecDoc struct {
	Wobble             bool        `json:"wobble,omitempty"`
	Domains            []DomainDoc `json:"domains"`
	Strands            []StrandDoc `json:"strands"`
	Complexes          []ComplexDoc `json:"complexes"`
	Tubes              []TubeDoc   `json:"tubes,omitempty"`
	Weights            []WeightDoc `json:"weights,omitempty"`
	ForbiddenPatterns  []string    `json:"forbidden_patterns,omitempty"`
	MaxConstraintTries int         `json:"max_constraint_tries,omitempty"`
	CacheSize          int         `json:"cache_size,omitempty"`
}

// ParseSpec decodes a SpecDoc from JSON and builds the design.Spec it
// describes: a sequence.Pool with every domain and strand registered,
// a sequence.Complex per complex (built against the pool), and the
// tubes and weights referencing them by name.
func ParseSpec(file []byte) (design.Spec, error) {
	var doc SpecDoc
	if err := json.Unmarshal(file, &doc); err != nil {
		return design.Spec{}, fmt.Errorf("ioformat: parsing spec: %w", err)
	}
	return buildSpec(doc)
}

// ReadSpec reads and parses a SpecDoc JSON file from path.
func ReadSpec(path string) (design.Spec, error) {
	file, err := ioutil.ReadFile(path)
	if err != nil {
		return design.Spec{}, fmt.Errorf("ioformat: reading spec file: %w", err)
	}
	return ParseSpec(file)
}

func buildSpec(doc SpecDoc) (design.Spec, error) {
	pool := sequence.NewPool(doc.Wobble)
	for _, d := range doc.Domains {
		if _, err := pool.AddDomain(d.Name, d.Pattern); err != nil {
			return design.Spec{}, fmt.Errorf("ioformat: domain %q: %w", d.Name, err)
		}
	}
	for _, s := range doc.Strands {
		if _, err := pool.AddStrand(s.Name, s.Domains); err != nil {
			return design.Spec{}, fmt.Errorf("ioformat: strand %q: %w", s.Name, err)
		}
	}

	complexes := make([]*sequence.Complex, len(doc.Complexes))
	index := make(map[string]int, len(doc.Complexes))
	for i, cd := range doc.Complexes {
		c, err := buildComplex(cd)
		if err != nil {
			return design.Spec{}, err
		}
		if err := c.Build(pool); err != nil {
			return design.Spec{}, fmt.Errorf("ioformat: complex %q: %w", cd.Name, err)
		}
		complexes[i] = c
		index[cd.Name] = i
	}

	tubes := make([]sequence.Tube, len(doc.Tubes))
	for i, td := range doc.Tubes {
		entries := make([]sequence.TubeEntry, len(td.Entries))
		for j, e := range td.Entries {
			ci, ok := index[e.Complex]
			if !ok {
				return design.Spec{}, fmt.Errorf("ioformat: tube %q: no complex named %q", td.Name, e.Complex)
			}
			entries[j] = sequence.TubeEntry{ComplexIndex: ci, TargetConc: e.TargetConc}
		}
		tubes[i] = sequence.Tube{Name: td.Name, Entries: entries}
	}

	weights := make([]sequence.Weight, len(doc.Weights))
	for i, wd := range doc.Weights {
		w, err := sequence.NewWeight(wd.Tube, wd.Complex, wd.Strand, wd.Domain, wd.Multiplier)
		if err != nil {
			return design.Spec{}, fmt.Errorf("ioformat: weight %d: %w", i, err)
		}
		weights[i] = w
	}

	return design.Spec{
		Pool:               pool,
		Complexes:          complexes,
		Tubes:              tubes,
		Weights:            weights,
		Wobble:             doc.Wobble,
		ForbiddenPatterns:  doc.ForbiddenPatterns,
		MaxConstraintTries: doc.MaxConstraintTries,
		CacheSize:          doc.CacheSize,
	}, nil
}

func buildComplex(cd ComplexDoc) (*sequence.Complex, error) {
	c := &sequence.Complex{
		Name:    cd.Name,
		Strands: cd.Strands,
		Bonus:   cd.Bonus,
		Params:  sequence.DefaultDecompositionParameters(),
	}
	if cd.Structure != "" {
		st, err := dotparens.Parse(cd.Structure)
		if err != nil {
			return nil, fmt.Errorf("ioformat: complex %q: structure: %w", cd.Name, err)
		}
		model := cd.Model
		if model == "" {
			model = "rna37"
		}
		c.Target = sequence.Target{Model: model, Structure: st}
	}
	return c, nil
}

// WriteSpec writes doc to path as indented JSON, in the same SpecDoc
// shape that ReadSpec reads.
func WriteSpec(doc SpecDoc, path string) error {
	file, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("ioformat: encoding spec: %w", err)
	}
	if err := ioutil.WriteFile(path, file, 0644); err != nil {
		return fmt.Errorf("ioformat: writing spec file: %w", err)
	}
	return nil
}
