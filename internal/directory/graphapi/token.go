package graphapi

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenSource mints and caches the bearer token presented to the directory
// API. Service-to-service auth uses a short-lived HS256 assertion signed with
// the shared client secret; tokens are reused until shortly before expiry.
type tokenSource struct {
	clientID string
	tenantID string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

const tokenRefreshSkew = 30 * time.Second

func newTokenSource(clientID, tenantID string, secret []byte, ttl time.Duration) *tokenSource {
	return &tokenSource{
		clientID: clientID,
		tenantID: tenantID,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Bearer returns a valid token, minting a fresh one when the cached token is
// within the refresh skew of expiring.
func (ts *tokenSource) Bearer() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	if ts.cached != "" && now.Add(tokenRefreshSkew).Before(ts.expires) {
		return ts.cached, nil
	}

	expires := now.Add(ts.ttl)
	claims := jwt.MapClaims{
		"iss": ts.clientID,
		"sub": ts.clientID,
		"aud": ts.tenantID,
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign directory token: %w", err)
	}

	ts.cached = signed
	ts.expires = expires
	return signed, nil
}
