package models

import (
	"strings"

	dErrors "mailmove/pkg/domain-errors"
)

// DomainSet names the domains being decommissioned and the target domain for
// the post-migration primary address. It is supplied once per run and never
// mutated afterwards.
type DomainSet struct {
	old map[string]struct{}
	new string
}

// NewDomainSet validates and normalizes the run's domain configuration.
// Domains are compared case-insensitively for the whole run. A target domain
// that is itself listed for decommission is always operator error and is
// rejected up front.
func NewDomainSet(old []string, newDomain string) (DomainSet, error) {
	if err := validateDomain(newDomain); err != nil {
		return DomainSet{}, err
	}
	if len(old) == 0 {
		return DomainSet{}, dErrors.New(dErrors.CodeValidation, "at least one old domain is required")
	}

	set := DomainSet{
		old: make(map[string]struct{}, len(old)),
		new: strings.ToLower(newDomain),
	}
	for _, d := range old {
		if err := validateDomain(d); err != nil {
			return DomainSet{}, err
		}
		set.old[strings.ToLower(d)] = struct{}{}
	}
	if _, overlap := set.old[set.new]; overlap {
		return DomainSet{}, dErrors.Newf(dErrors.CodeValidation,
			"new domain %q is also listed as an old domain", newDomain)
	}
	return set, nil
}

func validateDomain(domain string) error {
	d := strings.TrimSpace(domain)
	if d == "" {
		return dErrors.New(dErrors.CodeValidation, "domain must not be empty")
	}
	if d != domain || strings.ContainsAny(d, "@ \t") || !strings.Contains(d, ".") {
		return dErrors.Newf(dErrors.CodeValidation, "malformed domain %q", domain)
	}
	return nil
}

// ContainsOld reports whether the domain is part of the decommission set.
func (ds DomainSet) ContainsOld(domain string) bool {
	_, ok := ds.old[strings.ToLower(domain)]
	return ok
}

// MatchesOld reports whether the entry's domain is being decommissioned.
func (ds DomainSet) MatchesOld(entry AddressEntry) bool {
	return ds.ContainsOld(entry.Domain)
}

// IsNew reports whether the domain equals the migration target domain.
func (ds DomainSet) IsNew(domain string) bool {
	return strings.ToLower(domain) == ds.new
}

// New returns the normalized target domain.
func (ds DomainSet) New() string {
	return ds.new
}

// Old returns the normalized decommission set. Order is not guaranteed;
// callers needing determinism must sort.
func (ds DomainSet) Old() []string {
	out := make([]string, 0, len(ds.old))
	for d := range ds.old {
		out = append(out, d)
	}
	return out
}
