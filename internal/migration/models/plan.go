package models

// RewritePlan is the planner's full answer for one identity. A plan with no
// removals or additions and a non-empty NoOpReason means the identity is
// already clean.
//
// Additions carries both genuinely new entries (a synthesized primary) and
// flag deltas: an existing entry whose primary flag must change appears here
// with its final flag, and Final replaces the old flag rather than appending
// a duplicate.
type RewritePlan struct {
	Removals   []AddressEntry
	Additions  []AddressEntry
	NewPrimary *AddressEntry
	NoOpReason string
}

// IsNoOp reports whether the plan leaves the identity untouched.
func (p RewritePlan) IsNoOp() bool {
	return len(p.Removals) == 0 && len(p.Additions) == 0 && p.NoOpReason != ""
}

// Final materializes the address set the plan implies for the given current
// set. The primary entry is emitted first, then surviving entries in their
// original order; synthesized entries that match nothing in the current set
// are appended. Final never mutates its input.
func (p RewritePlan) Final(current AddressSet) AddressSet {
	if p.IsNoOp() {
		out := make(AddressSet, len(current))
		copy(out, current)
		return out
	}

	removed := func(e AddressEntry) bool {
		for _, r := range p.Removals {
			if e.Equal(r) {
				return true
			}
		}
		return false
	}
	override := func(e AddressEntry) (AddressEntry, bool) {
		for _, a := range p.Additions {
			if e.Equal(a) {
				return a, true
			}
		}
		return AddressEntry{}, false
	}

	merged := make(AddressSet, 0, len(current)+len(p.Additions))
	for _, e := range current {
		// Equal-duplicate slots in the input collapse to their first
		// occurrence; without this a promotion override would flag every
		// duplicate primary.
		if removed(e) || merged.Contains(e) {
			continue
		}
		if repl, ok := override(e); ok {
			e = repl
		}
		merged = append(merged, e)
	}
	for _, a := range p.Additions {
		if !merged.Contains(a) {
			merged = append(merged, a)
		}
	}

	// Deterministic output order: the single primary leads.
	out := make(AddressSet, 0, len(merged))
	for _, e := range merged {
		if e.Primary {
			out = append(out, e)
		}
	}
	for _, e := range merged {
		if !e.Primary {
			out = append(out, e)
		}
	}
	return out
}
