package modelmap

import "testing"

func TestResolveCachesModel(t *testing.T) {
	m := New()
	a, err := m.Resolve("rna37")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Resolve("rna37")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("resolved models differ across calls: %+v != %+v", a, b)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestResolveUnknownModel(t *testing.T) {
	m := New()
	if _, err := m.Resolve("not-a-model"); err == nil {
		t.Error("expected error for unrecognized model key")
	}
}
