package graphapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailmove/internal/directory"
	"mailmove/internal/migration/models"
	"mailmove/pkg/platform/sentinel"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:      srv.URL,
		TenantID:     "tenant-a",
		ClientID:     "migrator",
		ClientSecret: "test-secret",
		Timeout:      2 * time.Second,
	})
	require.NoError(t, err)
	return client, srv
}

func TestGetParsesIdentityAndSendsBearer(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/identities/user-mailboxes/alice@old.com", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"principalName":  "alice@old.com",
			"displayName":    "Alice",
			"proxyAddresses": []string{"SMTP:alice@old.com", "smtp:alice@new.onmicrosoft.com"},
		})
	}))

	id, err := client.Get(context.Background(), models.KindUserMailbox, "alice@old.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@old.com", id.PrincipalName)
	assert.Len(t, id.ProxyAddresses, 2)

	require.True(t, strings.HasPrefix(gotAuth, "Bearer "))
	token, err := jwt.Parse(strings.TrimPrefix(gotAuth, "Bearer "), func(t *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	sub, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "migrator", sub)
}

func TestGetMapsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no such mailbox"})
	}))

	_, err := client.Get(context.Background(), models.KindUserMailbox, "ghost@old.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Contains(t, err.Error(), "no such mailbox")
}

func TestPingMapsAuthFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, sentinel.ErrUnauthorized)
}

func TestListSendsDomainFilter(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "old1.com,old2.com", r.URL.Query().Get("anyDomain"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"identities": []map[string]any{
				{"principalName": "dg@old1.com", "proxyAddresses": []string{"SMTP:dg@old1.com"}},
			},
		})
	}))

	ids, err := client.List(context.Background(), models.KindDistributionGroup,
		directory.Filter{AnyDomain: []string{"old1.com", "old2.com"}})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, models.KindDistributionGroup, ids[0].Kind)
}

func TestApplyAddressSetFallbackChain(t *testing.T) {
	var attempts []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts = append(attempts, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPatch:
			// Both attribute strategies are rejected by this backend.
			w.WriteHeader(http.StatusConflict)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	identity := models.Identity{Kind: models.KindUserMailbox, PrincipalName: "bob@old.com"}
	final := models.AddressSet{{Primary: true, LocalPart: "bob", Domain: "new.onmicrosoft.com"}}

	err := client.ApplyAddressSet(context.Background(), identity, final, final[0])
	require.NoError(t, err, "raw proxy-address rewrite should rescue the mutation")

	require.Len(t, attempts, 3, "each strategy attempted once, in order")
	assert.Equal(t, "PATCH /v1/identities/user-mailboxes/bob@old.com", attempts[0])
	assert.Equal(t, "PATCH /v1/identities/user-mailboxes/bob@old.com", attempts[1])
	assert.Equal(t, "PUT /v1/identities/user-mailboxes/bob@old.com/proxy-addresses", attempts[2])
}

func TestApplyAddressSetSurfacesLastFailure(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	identity := models.Identity{Kind: models.KindUserMailbox, PrincipalName: "bob@old.com"}
	final := models.AddressSet{{Primary: true, LocalPart: "bob", Domain: "new.onmicrosoft.com"}}

	err := client.ApplyAddressSet(context.Background(), identity, final, final[0])
	require.Error(t, err)
	assert.Equal(t, 3, calls, "chain exhausts every strategy exactly once")
	assert.Contains(t, err.Error(), "raw-proxy-addresses", "last strategy names the surfaced failure")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestCustomStrategyChain(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var used bool
	custom := NewStrategy("tenant-specific", func(ctx context.Context, identity models.Identity, final models.AddressSet, primary models.AddressEntry) error {
		used = true
		return nil
	})
	WithStrategies(custom)(client)

	err := client.ApplyAddressSet(context.Background(), models.Identity{}, nil, models.AddressEntry{})
	require.NoError(t, err)
	assert.True(t, used)
}
