package models

import (
	"strings"

	dErrors "mailmove/pkg/domain-errors"
)

// Proxy-address prefix convention: the case of the protocol tag carries the
// primary flag. "SMTP:" marks the primary address, "smtp:" a secondary alias.
const (
	primaryPrefix   = "SMTP:"
	secondaryPrefix = "smtp:"
)

// AddressEntry is one parsed proxy address on an identity.
//
// Invariants:
//   - Equality is case-insensitive on LocalPart and Domain and ignores the
//     Primary flag; two entries naming the same mailbox slot are equal even
//     when one is primary and the other is not.
//   - LocalPart and Domain preserve the casing they were parsed with; the
//     flag lives only in the prefix, never in the address text.
type AddressEntry struct {
	Primary   bool
	LocalPart string
	Domain    string
}

// ParseAddress parses a proxy-address token. Tokens may carry the SMTP/smtp
// prefix or be bare "local@domain" strings (treated as secondary). A token
// without an @ separator, or with an empty local part or domain, is a
// malformed-address error.
func ParseAddress(token string) (AddressEntry, error) {
	raw := token
	primary := false

	if i := strings.IndexByte(raw, ':'); i >= 0 && strings.EqualFold(raw[:i], "smtp") {
		primary = raw[:i+1] == primaryPrefix
		raw = raw[i+1:]
	}

	at := strings.LastIndexByte(raw, '@')
	if at <= 0 || at == len(raw)-1 {
		return AddressEntry{}, dErrors.Newf(dErrors.CodeMalformedAddress,
			"proxy address %q has no local@domain form", token)
	}

	return AddressEntry{
		Primary:   primary,
		LocalPart: raw[:at],
		Domain:    raw[at+1:],
	}, nil
}

// String renders the entry back to its proxy-address token form.
func (e AddressEntry) String() string {
	prefix := secondaryPrefix
	if e.Primary {
		prefix = primaryPrefix
	}
	return prefix + e.LocalPart + "@" + e.Domain
}

// Address returns the bare local@domain form without the protocol prefix.
func (e AddressEntry) Address() string {
	return e.LocalPart + "@" + e.Domain
}

// Equal reports whether two entries name the same mailbox slot. The primary
// flag is deliberately excluded.
func (e AddressEntry) Equal(other AddressEntry) bool {
	return strings.EqualFold(e.LocalPart, other.LocalPart) &&
		strings.EqualFold(e.Domain, other.Domain)
}

// WithDomain returns a copy of the entry on a different domain. The receiver
// is not mutated.
func (e AddressEntry) WithDomain(domain string) AddressEntry {
	e.Domain = domain
	return e
}

// WithPrimary returns a copy of the entry with the primary flag set as given.
func (e AddressEntry) WithPrimary(primary bool) AddressEntry {
	e.Primary = primary
	return e
}

// SynthesizePrimary builds the primary entry used when no existing address at
// the new domain survives the rewrite. The local part comes from the
// principal name (the substring before its own @, or the whole name when it
// has none) and is lower-cased for output consistency.
func SynthesizePrimary(principalName, newDomain string) AddressEntry {
	local := principalName
	if at := strings.IndexByte(principalName, '@'); at > 0 {
		local = principalName[:at]
	}
	return AddressEntry{
		Primary:   true,
		LocalPart: strings.ToLower(local),
		Domain:    newDomain,
	}
}

// AddressSet is an ordered collection of entries. Order is insertion
// preserving; it carries no semantics beyond deterministic output.
type AddressSet []AddressEntry

// ParseAddressSet parses every token, failing on the first malformed one.
func ParseAddressSet(tokens []string) (AddressSet, error) {
	set := make(AddressSet, 0, len(tokens))
	for _, token := range tokens {
		entry, err := ParseAddress(token)
		if err != nil {
			return nil, err
		}
		set = append(set, entry)
	}
	return set, nil
}

// Tokens renders the set back to proxy-address token form.
func (s AddressSet) Tokens() []string {
	tokens := make([]string, len(s))
	for i, entry := range s {
		tokens[i] = entry.String()
	}
	return tokens
}

// Contains reports whether an equal entry (flag-insensitive) is present.
func (s AddressSet) Contains(entry AddressEntry) bool {
	for _, e := range s {
		if e.Equal(entry) {
			return true
		}
	}
	return false
}

// PrimaryEntry returns the first entry flagged primary, if any.
func (s AddressSet) PrimaryEntry() (AddressEntry, bool) {
	for _, e := range s {
		if e.Primary {
			return e, true
		}
	}
	return AddressEntry{}, false
}

// PrimaryToken extracts the bare address of the first SMTP:-prefixed token
// without requiring the whole token list to parse. Used when recording
// outcomes for identities whose set may be malformed.
func PrimaryToken(tokens []string) string {
	for _, t := range tokens {
		if strings.HasPrefix(t, primaryPrefix) {
			return t[len(primaryPrefix):]
		}
	}
	return ""
}
