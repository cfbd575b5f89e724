package graphapi

import (
	"context"
	"net/http"
	"net/url"

	"mailmove/internal/migration/models"
)

// MutationStrategy is one named way of writing the final address set and
// primary designation. The backend's primary-designation endpoint is known to
// reject some object classes, so the chain keeps alternates that reach the
// same end state through different attributes.
type MutationStrategy struct {
	name  string
	apply func(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error
}

// NewStrategy builds a custom chain step for backends whose quirks differ
// from the defaults.
func NewStrategy(name string, apply func(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error) MutationStrategy {
	return MutationStrategy{name: name, apply: apply}
}

func defaultStrategies(c *Client) []MutationStrategy {
	return []MutationStrategy{
		{
			// Preferred path: one PATCH setting the primary SMTP
			// attribute together with the full proxy list.
			name: "primary-smtp-attribute",
			apply: func(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error {
				return c.patchIdentity(ctx, identity, map[string]any{
					"primarySmtpAddress": primary.Address(),
					"proxyAddresses":     final.Tokens(),
				})
			},
		},
		{
			// Some object classes only accept the legacy mail attribute
			// for primary designation.
			name: "windows-email-attribute",
			apply: func(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error {
				return c.patchIdentity(ctx, identity, map[string]any{
					"windowsEmailAddress": primary.Address(),
					"proxyAddresses":      final.Tokens(),
				})
			},
		},
		{
			// Last resort: rewrite the raw proxy list and let the
			// SMTP:/smtp: prefix casing carry the primary designation.
			name: "raw-proxy-addresses",
			apply: func(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error {
				return c.putProxyAddresses(ctx, identity, final.Tokens())
			},
		},
	}
}

func (c *Client) patchIdentity(ctx context.Context, identity models.Identity, body map[string]any) error {
	path := "/v1/identities/" + kindSegment(identity.Kind) + "/" + url.PathEscape(identity.PrincipalName)
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

func (c *Client) putProxyAddresses(ctx context.Context, identity models.Identity, tokens []string) error {
	path := "/v1/identities/" + kindSegment(identity.Kind) + "/" + url.PathEscape(identity.PrincipalName) + "/proxy-addresses"
	return c.do(ctx, http.MethodPut, path, map[string]any{"proxyAddresses": tokens}, nil)
}
