package archive

import "testing"

func e(totals ...float64) Entry { return Entry{Totals: totals} }

func TestAttemptAddFillsUpToCapacity(t *testing.T) {
	a := New(3)
	for i, totals := range [][]float64{{1, 5}, {5, 1}, {3, 3}} {
		added, displaced, err := a.AttemptAdd(Entry{Totals: totals})
		if err != nil {
			t.Fatal(err)
		}
		if added != 1 || displaced != 0 {
			t.Fatalf("entry %d: added=%d displaced=%d, want 1/0", i, added, displaced)
		}
	}
	if len(a.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(a.Entries))
	}
}

func TestAttemptAddRejectsDominatedCandidate(t *testing.T) {
	a := New(5)
	mustAdd(t, a, e(1, 1))
	added, displaced, err := a.AttemptAdd(e(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 || displaced != 0 {
		t.Errorf("expected dominated candidate rejected, got added=%d displaced=%d", added, displaced)
	}
}

func TestAttemptAddRejectsObjectiveEqualCandidate(t *testing.T) {
	a := New(5)
	mustAdd(t, a, e(1, 1))
	added, _, err := a.AttemptAdd(e(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Error("expected objective-equal candidate rejected")
	}
}

func TestAttemptAddEvictsDominatedEntries(t *testing.T) {
	a := New(5)
	mustAdd(t, a, e(5, 5))
	mustAdd(t, a, e(1, 9))
	// (2, 2) dominates (5, 5) but not (1, 9)
	added, displaced, err := a.AttemptAdd(e(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 || displaced != 1 {
		t.Fatalf("added=%d displaced=%d, want 1/1", added, displaced)
	}
	if len(a.Entries) != 2 {
		t.Fatalf("got %d entries, want 2 ((1,9) and (2,2))", len(a.Entries))
	}
}

func TestAttemptAddDiversityPromotionWhenFull(t *testing.T) {
	// capacity 2, front already has two entries very close together on
	// the Pareto curve; a new mutually non-dominating candidate that is
	// farther from both should displace one of the two crowded entries.
	a := New(2)
	mustAdd(t, a, e(1, 10))
	mustAdd(t, a, e(2, 9))
	added, displaced, err := a.AttemptAdd(e(10, 1))
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 || displaced != 1 {
		t.Fatalf("added=%d displaced=%d, want 1/1", added, displaced)
	}
	if len(a.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(a.Entries))
	}
}

func TestAttemptAddRejectsWhenFullAndNotDiverse(t *testing.T) {
	// capacity 2, both slots taken by well-spread entries; a third
	// candidate that sits between them (lower density than the current
	// minimum) should be rejected.
	a := New(2)
	mustAdd(t, a, e(1, 10))
	mustAdd(t, a, e(10, 1))
	added, displaced, err := a.AttemptAdd(e(5, 5))
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 || displaced != 0 {
		t.Errorf("expected low-diversity candidate rejected when full, got added=%d displaced=%d", added, displaced)
	}
}

func TestAttemptAddRejectsMismatchedObjectiveCount(t *testing.T) {
	a := New(5)
	mustAdd(t, a, e(1, 1))
	if _, _, err := a.AttemptAdd(e(1, 1, 1)); err == nil {
		t.Error("expected error for mismatched objective count")
	}
}

func TestRemoveDominated(t *testing.T) {
	a := &Archive{MaxSize: 10, Entries: []Entry{e(1, 1), e(2, 2), e(0.5, 0.5)}}
	removed := a.RemoveDominated()
	if removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	if len(a.Entries) != 1 || a.Entries[0].Totals[0] != 0.5 {
		t.Errorf("unexpected surviving entries: %+v", a.Entries)
	}
}

func TestMergeCombinesTwoArchives(t *testing.T) {
	a := New(10)
	mustAdd(t, a, e(1, 5))
	b := New(10)
	mustAdd(t, b, e(5, 1))
	mustAdd(t, b, e(2, 6)) // dominated by a's (1,5), should not be added
	added, _, err := a.Merge(b)
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Errorf("Merge() added = %d, want 1", added)
	}
	if len(a.Entries) != 2 {
		t.Fatalf("got %d entries after merge, want 2", len(a.Entries))
	}
}

func mustAdd(t *testing.T, a *Archive, entry Entry) {
	t.Helper()
	added, _, err := a.AttemptAdd(entry)
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Fatalf("AttemptAdd(%+v) did not add, archive=%+v", entry, a.Entries)
	}
}
