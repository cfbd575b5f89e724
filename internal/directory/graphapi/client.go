// Package graphapi is the HTTP adapter to the tenant directory API. It owns
// bearer-token authentication and the ordered mutation fallback chain; the
// migration core only ever sees the directory.Service interface.
package graphapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mailmove/internal/directory"
	"mailmove/internal/migration/models"
	"mailmove/pkg/platform/sentinel"
)

// Config carries everything needed to reach and authenticate to the
// directory API.
type Config struct {
	BaseURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	TokenTTL     time.Duration
}

// Client implements directory.Service over the tenant directory REST API.
type Client struct {
	base       string
	httpClient *http.Client
	tokens     *tokenSource
	logger     *slog.Logger
	strategies []MutationStrategy
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the structured logger used for fallback-chain reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithStrategies replaces the mutation fallback chain. The chain shape is the
// contract; the default steps encode backend quirks and are expected to be
// swapped per backend.
func WithStrategies(strategies ...MutationStrategy) Option {
	return func(c *Client) { c.strategies = strategies }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("directory base URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("directory client credentials are required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 5 * time.Minute
	}

	c := &Client{
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     newTokenSource(cfg.ClientID, cfg.TenantID, []byte(cfg.ClientSecret), cfg.TokenTTL),
		logger:     slog.Default(),
	}
	c.strategies = defaultStrategies(c)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ directory.Service = (*Client)(nil)

// Ping verifies connectivity and credentials before the run starts.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/ping", nil, nil)
}

func (c *Client) List(ctx context.Context, kind models.IdentityKind, filter directory.Filter) ([]models.Identity, error) {
	path := "/v1/identities/" + kindSegment(kind)
	if len(filter.AnyDomain) > 0 {
		path += "?anyDomain=" + url.QueryEscape(strings.Join(filter.AnyDomain, ","))
	}

	var payload struct {
		Identities []wireIdentity `json:"identities"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	out := make([]models.Identity, 0, len(payload.Identities))
	for _, w := range payload.Identities {
		out = append(out, w.toModel(kind))
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, kind models.IdentityKind, principalOrAddress string) (models.Identity, error) {
	path := "/v1/identities/" + kindSegment(kind) + "/" + url.PathEscape(principalOrAddress)

	var w wireIdentity
	if err := c.do(ctx, http.MethodGet, path, nil, &w); err != nil {
		return models.Identity{}, err
	}
	return w.toModel(kind), nil
}

// ApplyAddressSet walks the mutation fallback chain: each strategy is a
// distinct way of designating the primary address against the same backend,
// attempted once, in order. The first success wins; when all fail the last
// failure is surfaced. This is a chain of alternatives, not a retry loop.
func (c *Client) ApplyAddressSet(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error {
	var lastErr error
	for _, strategy := range c.strategies {
		err := strategy.apply(ctx, identity, final, primary)
		if err == nil {
			if lastErr != nil {
				c.logger.InfoContext(ctx, "mutation succeeded via fallback strategy",
					"strategy", strategy.name,
					"principal", identity.PrincipalName,
				)
			}
			return nil
		}
		c.logger.WarnContext(ctx, "mutation strategy failed",
			"strategy", strategy.name,
			"principal", identity.PrincipalName,
			"error", err,
		)
		lastErr = fmt.Errorf("strategy %s: %w", strategy.name, err)
	}
	return lastErr
}

// wireIdentity is the REST representation of a directory object.
type wireIdentity struct {
	PrincipalName  string   `json:"principalName"`
	DisplayName    string   `json:"displayName"`
	ProxyAddresses []string `json:"proxyAddresses"`
}

// toModel keeps the raw tokens; parsing happens in the processor so a
// malformed token fails only its identity.
func (w wireIdentity) toModel(kind models.IdentityKind) models.Identity {
	return models.Identity{
		Kind:           kind,
		PrincipalName:  w.PrincipalName,
		DisplayName:    w.DisplayName,
		ProxyAddresses: w.ProxyAddresses,
	}
}

func kindSegment(kind models.IdentityKind) string {
	switch kind {
	case models.KindUserMailbox:
		return "user-mailboxes"
	case models.KindSharedMailbox:
		return "shared-mailboxes"
	case models.KindDistributionGroup:
		return "distribution-groups"
	case models.KindUnifiedGroup:
		return "unified-groups"
	}
	return string(kind)
}

// do issues one authenticated request and decodes the JSON response into out
// when out is non-nil. HTTP statuses map onto sentinel errors so callers can
// translate them into the domain taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	token, err := c.tokens.Bearer()
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}

	detail := struct {
		Error string `json:"error"`
	}{}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&detail)
	if detail.Error == "" {
		detail.Error = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", sentinel.ErrNotFound, detail.Error)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", sentinel.ErrUnauthorized, detail.Error)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", sentinel.ErrConflict, detail.Error)
	default:
		return fmt.Errorf("%w: %s", sentinel.ErrUnavailable, detail.Error)
	}
}
