// Package archive maintains a bounded multi-objective Pareto front with
// nearest-neighbor diversity maintenance: candidate solutions are kept if
// they are non-dominated by the current front, and once the front is full
// a new mutually-non-dominating candidate is only admitted if its own
// nearest-neighbor distance exceeds the smallest nearest-neighbor distance
// among the existing members, replacing that most crowded member.
package archive

import (
	"fmt"
	"math"
)

// Entry is one candidate solution's multi-objective score plus an
// opaque payload (the caller's full Result — sequence, per-complex
// defects, statistics — that the archive itself never interprets).
type Entry struct {
	Totals  []float64 // one value per objective, lower is better
	Payload interface{}
}

// dominates reports whether a is at least as good as b in every objective
// and strictly better in at least one — i.e. a Pareto-dominates b.
func dominates(a, b []float64) bool {
	if equalTotals(a, b) {
		return false
	}
	for i := range a {
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

func equalTotals(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Archive holds a bounded set of mutually non-dominated entries.
type Archive struct {
	MaxSize int
	Entries []Entry
}

// New returns an empty Archive bounded to maxSize entries.
func New(maxSize int) *Archive {
	return &Archive{MaxSize: maxSize}
}

// Full reports whether the archive has reached its capacity.
func (a *Archive) Full() bool { return len(a.Entries) >= a.MaxSize }

// RemoveDominated drops every entry dominated by some other entry
// currently in the archive (relevant after re-evaluating every entry's
// objectives at a more accurate estimate, which can change dominance
// relationships established at a cheaper depth). Returns the number
// removed.
func (a *Archive) RemoveDominated() int {
	reference := append([]Entry(nil), a.Entries...)
	kept := a.Entries[:0]
	for _, e := range a.Entries {
		dominated := false
		for _, other := range reference {
			if dominates(other.Totals, e.Totals) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, e)
		}
	}
	removed := len(a.Entries) - len(kept)
	a.Entries = kept
	return removed
}

// removeDominatedBy drops every entry that entry dominates, returning
// the count removed.
func (a *Archive) removeDominatedBy(entry Entry) int {
	kept := a.Entries[:0]
	removed := 0
	for _, e := range a.Entries {
		if dominates(entry.Totals, e.Totals) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	a.Entries = kept
	return removed
}

// AttemptAdd tries to insert entry into the archive:
//   - rejected if some existing entry dominates it or is objective-equal
//     to it;
//   - added (evicting anything it dominates) if it dominates at least one
//     existing entry;
//   - added outright if the archive has spare capacity;
//   - otherwise added only if its nearest-neighbor distance is larger
//     than the smallest nearest-neighbor distance among existing entries
//     (replacing the entry with that smallest distance, the most crowded
//     one) — this is the diversity-promotion step that keeps a full front
//     spread out rather than clustering.
//
// Returns (added, displaced): added is 1 if entry was inserted, displaced
// counts how many existing entries it evicted, either by direct dominance
// or (exactly one) by the diversity replacement. An
// error is returned, with nothing mutated, if entry's objective count
// does not match the archive's existing entries.
func (a *Archive) AttemptAdd(entry Entry) (added, displaced int, err error) {
	if err := validateLengths(a.Entries, &entry); err != nil {
		return 0, 0, err
	}

	for _, e := range a.Entries {
		if dominates(e.Totals, entry.Totals) || equalTotals(e.Totals, entry.Totals) {
			return 0, 0, nil
		}
	}

	if n := a.removeDominatedBy(entry); n > 0 {
		a.Entries = append(a.Entries, entry)
		return 1, n, nil
	}

	if !a.Full() {
		a.Entries = append(a.Entries, entry)
		return 1, 0, nil
	}

	densities := a.Densities()
	if len(densities) == 0 {
		return 0, 0, nil
	}
	minIdx, minDensity := 0, densities[0]
	for i, d := range densities[1:] {
		if d < minDensity {
			minIdx, minDensity = i+1, d
		}
	}
	if a.density(entry) > minDensity {
		a.Entries = append(a.Entries[:minIdx], a.Entries[minIdx+1:]...)
		a.Entries = append(a.Entries, entry)
		return 1, 1, nil
	}
	return 0, 0, nil
}

// Merge attempts to add every entry of other into a, returning the total
// added and displaced counts. It stops at the first entry whose
// objective count does not match the archive's.
func (a *Archive) Merge(other *Archive) (added, displaced int, err error) {
	for _, e := range other.Entries {
		add, disp, err := a.AttemptAdd(e)
		if err != nil {
			return added, displaced, err
		}
		added += add
		displaced += disp
	}
	return added, displaced, nil
}

// Densities returns each current entry's nearest-neighbor density.
func (a *Archive) Densities() []float64 {
	out := make([]float64, len(a.Entries))
	for i, e := range a.Entries {
		out[i] = a.density(e)
	}
	return out
}

// density is the distance from entry to its nearest strictly-positive-
// distance neighbor currently in the archive (entries at distance 0 —
// i.e. entry itself, if already present — are excluded, matching the
// nearest-*other*-neighbor intent). An archive with no other entries at
// positive distance reports +Inf, so it is always treated as maximally
// sparse.
func (a *Archive) density(entry Entry) float64 {
	min := math.Inf(1)
	for _, e := range a.Entries {
		d := distance(entry.Totals, e.Totals)
		if d > 0 && d < min {
			min = d
		}
	}
	return min
}

// distance is the average absolute difference between two objective
// vectors (mean L1 distance).
func distance(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var total float64
	for i := range a {
		total += math.Abs(a[i] - b[i])
	}
	return total / float64(len(a))
}

// validateLengths checks every entry (plus the candidate, if given)
// carries the same objective count, returning an error naming the
// mismatch rather than panicking on an out-of-range index.
func validateLengths(entries []Entry, candidate *Entry) error {
	if len(entries) == 0 && candidate == nil {
		return nil
	}
	n := -1
	if candidate != nil {
		n = len(candidate.Totals)
	}
	for _, e := range entries {
		if n == -1 {
			n = len(e.Totals)
			continue
		}
		if len(e.Totals) != n {
			return fmt.Errorf("archive: entry has %d objectives, want %d", len(e.Totals), n)
		}
	}
	return nil
}
