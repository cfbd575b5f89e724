// Package planner decides, for one identity's address set, which entries to
// drop, which entry becomes primary, and what the final set must look like.
//
// The planner is pure: it reads only its arguments, never mutates them, and
// produces the identical plan for identical input. Apply and dry-run modes
// share this single code path; only the mutation boundary differs.
package planner

import (
	"strings"

	"mailmove/internal/migration/models"
)

// NoOpReasonClean is the reason set on plans for identities that carry no
// reference to any old domain.
const NoOpReasonClean = "no old-domain references"

// Plan computes the rewrite for one address set.
//
// Post-conditions for every non-no-op plan:
//   - no entry of the final set has a domain in the old-domain set
//   - exactly one entry of the final set is primary
//   - removals never survive into the final set
func Plan(addresses models.AddressSet, principalName string, domains models.DomainSet) models.RewritePlan {
	var removals []models.AddressEntry
	var keep []models.AddressEntry
	for _, entry := range addresses {
		// Old-domain membership wins even when the entry would otherwise
		// qualify as a candidate; a misconfigured old/new overlap must
		// still strip the entry.
		if domains.MatchesOld(entry) {
			removals = append(removals, entry)
		} else {
			keep = append(keep, entry)
		}
	}

	if len(removals) == 0 {
		return models.RewritePlan{NoOpReason: NoOpReasonClean}
	}

	candidate, found := selectCandidate(keep, domains)
	if !found {
		candidate = models.SynthesizePrimary(principalName, domains.New())
	}
	candidate = candidate.WithPrimary(true)

	// Additions holds the synthesized entry and every flag delta: the
	// candidate when its current flag is not primary, and demotions of any
	// other surviving primary. That guarantees the single-primary invariant
	// even when the prior primary's domain is being kept.
	var additions []models.AddressEntry
	for _, entry := range keep {
		switch {
		case entry.Equal(candidate):
			if !entry.Primary {
				additions = append(additions, entry.WithPrimary(true))
			}
		case entry.Primary:
			additions = append(additions, entry.WithPrimary(false))
		}
	}
	if !found {
		additions = append(additions, candidate)
	}

	return models.RewritePlan{
		Removals:   removals,
		Additions:  additions,
		NewPrimary: &candidate,
	}
}

// selectCandidate picks the surviving entry on the target domain that will
// become primary. When several qualify, the lexicographically smallest
// lower-cased local part wins; ties on the folded local part keep the first
// occurrence. The tie-break is documented behavior, not an implementation
// accident: it is what makes repeated runs byte-identical.
func selectCandidate(keep []models.AddressEntry, domains models.DomainSet) (models.AddressEntry, bool) {
	var best models.AddressEntry
	bestKey := ""
	found := false
	for _, entry := range keep {
		if !domains.IsNew(entry.Domain) {
			continue
		}
		key := strings.ToLower(entry.LocalPart)
		if !found || key < bestKey {
			best = entry
			bestKey = key
			found = true
		}
	}
	return best, found
}
