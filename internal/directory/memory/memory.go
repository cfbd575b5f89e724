// Package memory provides an in-memory directory.Service for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mailmove/internal/directory"
	"mailmove/internal/migration/models"
	"mailmove/pkg/platform/sentinel"
)

// Directory holds identities keyed by lower-cased principal name.
type Directory struct {
	mu         sync.Mutex
	identities map[string]models.Identity
}

func New(identities ...models.Identity) *Directory {
	d := &Directory{identities: make(map[string]models.Identity, len(identities))}
	for _, id := range identities {
		d.identities[strings.ToLower(id.PrincipalName)] = id
	}
	return d
}

var _ directory.Service = (*Directory)(nil)

func (d *Directory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (d *Directory) List(ctx context.Context, kind models.IdentityKind, filter directory.Filter) ([]models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []models.Identity
	for _, id := range d.identities {
		if id.Kind != kind || !matches(id, filter) {
			continue
		}
		out = append(out, cloneIdentity(id))
	}
	// Map iteration order is random; pin it for the orchestrator's
	// deterministic output requirement.
	sortByPrincipal(out)
	return out, nil
}

func (d *Directory) Get(ctx context.Context, kind models.IdentityKind, principalOrAddress string) (models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return models.Identity{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.identities[strings.ToLower(principalOrAddress)]; ok && id.Kind == kind {
		return cloneIdentity(id), nil
	}
	for _, id := range d.identities {
		if id.Kind != kind {
			continue
		}
		for _, token := range id.ProxyAddresses {
			entry, err := models.ParseAddress(token)
			if err != nil {
				continue
			}
			if strings.EqualFold(entry.Address(), principalOrAddress) {
				return cloneIdentity(id), nil
			}
		}
	}
	return models.Identity{}, fmt.Errorf("%s %q: %w", kind, principalOrAddress, sentinel.ErrNotFound)
}

func (d *Directory) ApplyAddressSet(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	key := strings.ToLower(identity.PrincipalName)
	stored, ok := d.identities[key]
	if !ok {
		return fmt.Errorf("%s %q: %w", identity.Kind, identity.PrincipalName, sentinel.ErrNotFound)
	}
	stored.ProxyAddresses = final.Tokens()
	d.identities[key] = stored
	return nil
}

func matches(id models.Identity, filter directory.Filter) bool {
	if len(filter.AnyDomain) == 0 {
		return true
	}
	for _, token := range id.ProxyAddresses {
		entry, err := models.ParseAddress(token)
		if err != nil {
			// Unparsable tokens still belong to somebody; let the
			// processor report them instead of hiding the identity.
			return true
		}
		for _, domain := range filter.AnyDomain {
			if strings.EqualFold(entry.Domain, domain) {
				return true
			}
		}
	}
	return false
}

func cloneIdentity(id models.Identity) models.Identity {
	tokens := make([]string, len(id.ProxyAddresses))
	copy(tokens, id.ProxyAddresses)
	id.ProxyAddresses = tokens
	return id
}

func sortByPrincipal(ids []models.Identity) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].PrincipalName < ids[j].PrincipalName
	})
}
