// Package directory defines the boundary to the tenant's mailbox directory.
// The migration core consumes this interface; adapters own authentication,
// transport, and the backend-specific mutation fallback chain.
package directory

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"

	"mailmove/internal/migration/models"
)

// Filter narrows a listing. A zero Filter lists every identity of the kind.
type Filter struct {
	// AnyDomain keeps only identities carrying at least one address on one
	// of these domains. Matching is case-insensitive.
	AnyDomain []string
}

// Service is the lookup and mutation boundary to the directory backend.
//
// List returns a finite snapshot for the phase; it is consumed strictly
// sequentially and is not restartable across reconnects. Get resolves a
// single identity by principal name or by any of its addresses, returning a
// sentinel.ErrNotFound-wrapped error on a miss. ApplyAddressSet replaces the
// identity's address set and primary designation, walking the adapter's
// ordered fallback chain before surfacing failure.
type Service interface {
	Ping(ctx context.Context) error
	List(ctx context.Context, kind models.IdentityKind, filter Filter) ([]models.Identity, error)
	Get(ctx context.Context, kind models.IdentityKind, principalOrAddress string) (models.Identity, error)
	ApplyAddressSet(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error
}
