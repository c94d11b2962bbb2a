package ioformat

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/TimothyStiles/nupack/archive"
	"github.com/TimothyStiles/nupack/design"
)

func TestWriteReadArchiveRoundTrips(t *testing.T) {
	arc := archive.New(10)
	result := design.Result{
		Strands:     map[string]string{"s1": "AAAAAAAA", "s2": "UUUUUUUU"},
		TubeDefects: []float64{0.05},
	}
	if _, _, err := arc.AttemptAdd(archive.Entry{Totals: []float64{0.05}, Payload: result}); err != nil {
		t.Fatal(err)
	}

	dir, err := ioutil.TempDir("", "ioformat-archive-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "archive.json")
	if err := WriteArchive(arc, path); err != nil {
		t.Fatal(err)
	}

	doc, err := ReadArchive(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(doc.Results))
	}
	if doc.Results[0].Strands["s1"] != "AAAAAAAA" {
		t.Errorf("s1 = %q, want AAAAAAAA", doc.Results[0].Strands["s1"])
	}
	if len(doc.Results[0].TubeDefects) != 1 || doc.Results[0].TubeDefects[0] != 0.05 {
		t.Errorf("TubeDefects = %v, want [0.05]", doc.Results[0].TubeDefects)
	}
}

func TestBuildArchiveDocSkipsNonResultPayloads(t *testing.T) {
	arc := archive.New(10)
	if _, _, err := arc.AttemptAdd(archive.Entry{Totals: []float64{1}, Payload: "not a design.Result"}); err != nil {
		t.Fatal(err)
	}
	doc := BuildArchiveDoc(arc)
	if len(doc.Results) != 0 {
		t.Errorf("expected non-design.Result payloads to be skipped, got %d results", len(doc.Results))
	}
}
