// Package ensemble maintains the active/passive split over a design's
// complexes and the refocus procedure that promotes passive
// complexes to active scoring when they come to dominate the predicted
// defect.
package ensemble

// Partition is a bitmask over a design's complex list: Active[i] reports
// whether complex i is scored at full depth (true) or approximated cheaply
// (false, "passive").
type Partition struct {
	Active []bool
}

// NewPartition builds the initial partition: every on-target complex
// (onTarget[i] true) starts active, every off-target complex starts
// passive. Active complexes are scored at full depth; the design's
// normalized defect is computed only over on-target complexes, so an
// on-target complex can never be usefully left passive — its structural
// defect has nowhere else to be measured.
func NewPartition(onTarget []bool) Partition {
	active := make([]bool, len(onTarget))
	copy(active, onTarget)
	return Partition{Active: active}
}

// IsActive reports whether complex i is currently active.
func (p Partition) IsActive(i int) bool { return p.Active[i] }

// NumActive counts active complexes.
func (p Partition) NumActive() int {
	n := 0
	for _, b := range p.Active {
		if b {
			n++
		}
	}
	return n
}

// NumPassive counts passive complexes.
func (p Partition) NumPassive() int { return len(p.Active) - p.NumActive() }

// AllActive reports whether every complex is active (nothing left to
// refocus).
func (p Partition) AllActive() bool { return p.NumPassive() == 0 }

// Clone returns an independent copy.
func (p Partition) Clone() Partition {
	active := make([]bool, len(p.Active))
	copy(active, p.Active)
	return Partition{Active: active}
}

// Activated returns the indices active in p but not in prior.
func (p Partition) Activated(prior Partition) []int {
	var changed []int
	for i, active := range p.Active {
		if active && !prior.Active[i] {
			changed = append(changed, i)
		}
	}
	return changed
}
