package ioformat

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/TimothyStiles/nupack/archive"
	"github.com/TimothyStiles/nupack/design"
)

// ResultDoc is one design.Result rendered for output: the resolved
// strand sequences by name and the per-tube normalized ensemble defects
// that landed it in the archive.
type ResultDoc struct {
	Strands     map[string]string `json:"strands"`
	TubeDefects []float64         `json:"tube_defects"`
}

// ArchiveDoc is the full set of Pareto-nondominated trial results a
// design run produced.
type ArchiveDoc struct {
	Results []ResultDoc `json:"results"`
}

// buildResultDoc converts a design.Result into its JSON-ready form.
func buildResultDoc(r design.Result) ResultDoc {
	return ResultDoc{Strands: r.Strands, TubeDefects: r.TubeDefects}
}

// BuildArchiveDoc converts an archive.Archive of design.Result payloads
// into an ArchiveDoc. Entries whose Payload is not a design.Result are
// skipped: Archive is generic over any comparably-scored payload, but
// this module only ever stores design.Result in it.
func BuildArchiveDoc(arc *archive.Archive) ArchiveDoc {
	doc := ArchiveDoc{Results: make([]ResultDoc, 0, len(arc.Entries))}
	for _, e := range arc.Entries {
		if r, ok := e.Payload.(design.Result); ok {
			doc.Results = append(doc.Results, buildResultDoc(r))
		}
	}
	return doc
}

// WriteArchive writes arc to path as an ArchiveDoc JSON file.
func WriteArchive(arc *archive.Archive, path string) error {
	doc := BuildArchiveDoc(arc)
	file, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("ioformat: encoding archive: %w", err)
	}
	if err := ioutil.WriteFile(path, file, 0644); err != nil {
		return fmt.Errorf("ioformat: writing archive file: %w", err)
	}
	return nil
}

// ParseArchive decodes an ArchiveDoc from JSON.
func ParseArchive(file []byte) (ArchiveDoc, error) {
	var doc ArchiveDoc
	if err := json.Unmarshal(file, &doc); err != nil {
		return ArchiveDoc{}, fmt.Errorf("ioformat: parsing archive: %w", err)
	}
	return doc, nil
}

// ReadArchive reads and parses an ArchiveDoc JSON file from path.
func ReadArchive(path string) (ArchiveDoc, error) {
	file, err := ioutil.ReadFile(path)
	if err != nil {
		return ArchiveDoc{}, fmt.Errorf("ioformat: reading archive file: %w", err)
	}
	return ParseArchive(file)
}
