package models

// IdentityKind tags the directory object class an identity belongs to. The
// orchestrator processes kinds in a fixed phase order.
type IdentityKind string

const (
	KindUserMailbox       IdentityKind = "user_mailbox"
	KindSharedMailbox     IdentityKind = "shared_mailbox"
	KindDistributionGroup IdentityKind = "distribution_group"
	KindUnifiedGroup      IdentityKind = "unified_group"
)

// MailboxKinds lists the kinds handled in the mailbox phase.
var MailboxKinds = []IdentityKind{KindUserMailbox, KindSharedMailbox}

// Identity is a directory object whose address set may need rewriting.
//
// PrincipalName is the canonical login-style identifier, independent of the
// address list; it seeds the synthesized primary when no address at the new
// domain survives. ProxyAddresses holds the raw tokens exactly as stored in
// the directory: parsing is deferred to the processor so one malformed token
// fails that identity, never the phase listing that carried it. Identity
// state is read fresh at the start of each processing cycle and discarded
// after the outcome is recorded.
type Identity struct {
	Kind           IdentityKind
	PrincipalName  string
	DisplayName    string
	ProxyAddresses []string
}

// AddressSet parses the raw proxy tokens, failing with a malformed-address
// error on the first bad token.
func (i Identity) AddressSet() (AddressSet, error) {
	return ParseAddressSet(i.ProxyAddresses)
}
