package cloudflare

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTeam     = "acme.cloudflareaccess.com"
	testAudience = "4714c1358e65fe4b408ad6d432a5f878f08194bdb4752441fd56faefa9b2b6f2"
	testKid      = "key-1"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type testTeamEnv struct {
	key     *rsa.PrivateKey
	server  *httptest.Server
	fetches atomic.Int32
	failing atomic.Bool
	clock   *clockwork.FakeClock
	keys    *KeySet
}

func newTestTeamEnv(t *testing.T) *testTeamEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	env := &testTeamEnv{key: key, clock: clockwork.NewFakeClockAt(testNow)}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.fetches.Add(1)
		if env.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JWK{{
			Kid: testKid,
			Kty: "RSA",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(env.server.Close)

	env.keys = NewKeySet(env.server.URL, env.clock, nil)
	return env
}

func (e *testTeamEnv) verifier() *Verifier {
	return NewVerifier(e.keys, testTeam, testAudience, e.clock)
}

func (e *testTeamEnv) sign(t *testing.T, mutate func(*Claims)) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + testTeam,
			Subject:   "7335d417-61da-459d-899c-0a01c76a2f94",
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(e.clock.Now()),
			ExpiresAt: jwt.NewNumericDate(e.clock.Now().Add(time.Hour)),
		},
		Email: "ada@example.com",
		Type:  "app",
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKid
	signed, err := token.SignedString(e.key)
	require.NoError(t, err)
	return signed
}

func accessHeaders(email, assertion string) http.Header {
	h := http.Header{}
	h.Set(HeaderEmail, email)
	if assertion != "" {
		h.Set(HeaderAssertion, assertion)
	}
	return h
}

func TestFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderEmail, " ada@example.com ")
	h.Set(HeaderName, "Ada Lovelace")
	h.Set(HeaderGroups, "admins, ops,,")

	id, ok := FromHeaders(h)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "Ada Lovelace", id.Name)
	assert.Equal(t, []string{"admins", "ops"}, id.Groups)
}

func TestFromHeaders_ForwardedUserFallback(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderUser, "grace@example.com")
	id, ok := FromHeaders(h)
	require.True(t, ok)
	assert.Equal(t, "grace@example.com", id.Email)

	h.Set(HeaderUser, "grace")
	_, ok = FromHeaders(h)
	assert.False(t, ok, "a bare username is not an email")

	_, ok = FromHeaders(http.Header{})
	assert.False(t, ok)
}

func TestVerifier_ValidAssertion(t *testing.T) {
	env := newTestTeamEnv(t)

	claims, err := env.verifier().Verify(context.Background(), env.sign(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "app", claims.Type)
}

func TestVerifier_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Claims)
	}{
		{"wrong audience", func(c *Claims) { c.Audience = jwt.ClaimStrings{"other-app"} }},
		{"wrong issuer", func(c *Claims) { c.Issuer = "https://evil.cloudflareaccess.com" }},
		{"expired", func(c *Claims) { c.ExpiresAt = jwt.NewNumericDate(testNow.Add(-time.Hour)) }},
		{"no expiry", func(c *Claims) { c.ExpiresAt = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestTeamEnv(t)
			_, err := env.verifier().Verify(context.Background(), env.sign(t, tt.mutate))
			assert.Error(t, err)
		})
	}
}

func TestVerifier_RejectsHS256(t *testing.T) {
	env := newTestTeamEnv(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "https://" + testTeam,
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	})
	token.Header["kid"] = testKid
	signed, err := token.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = env.verifier().Verify(context.Background(), signed)
	assert.Error(t, err)
}

func TestVerifier_ExpiresWithClock(t *testing.T) {
	env := newTestTeamEnv(t)
	assertion := env.sign(t, nil)

	_, err := env.verifier().Verify(context.Background(), assertion)
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	_, err = env.verifier().Verify(context.Background(), assertion)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestKeySet_CachesForTenMinutes(t *testing.T) {
	env := newTestTeamEnv(t)
	ctx := context.Background()

	_, err := env.keys.Key(ctx, testKid)
	require.NoError(t, err)
	_, err = env.keys.Key(ctx, testKid)
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.fetches.Load())
	assert.True(t, env.keys.Ready())

	_, err = env.keys.Key(ctx, "rotated")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.EqualValues(t, 1, env.fetches.Load(), "unknown kid does not bypass the refresh interval")

	env.clock.Advance(11 * time.Minute)
	_, err = env.keys.Key(ctx, testKid)
	require.NoError(t, err)
	assert.EqualValues(t, 2, env.fetches.Load())
}

func TestKeySet_ServesStaleKeyWhenRefreshFails(t *testing.T) {
	env := newTestTeamEnv(t)
	ctx := context.Background()

	_, err := env.keys.Key(ctx, testKid)
	require.NoError(t, err)

	env.failing.Store(true)
	env.clock.Advance(11 * time.Minute)

	key, err := env.keys.Key(ctx, testKid)
	require.NoError(t, err)
	assert.Equal(t, env.key.N, key.N)
}

func TestKeySet_FetchFailureWithoutCache(t *testing.T) {
	env := newTestTeamEnv(t)
	env.failing.Store(true)

	_, err := env.keys.Key(context.Background(), testKid)
	assert.Error(t, err)
	assert.False(t, env.keys.Ready())
}

func TestAuthenticator_VerifiesAssertion(t *testing.T) {
	env := newTestTeamEnv(t)
	auth := NewAuthenticator(env.verifier())
	ctx := context.Background()

	id, err := auth.Authenticate(ctx, accessHeaders("Ada@Example.com", env.sign(t, nil)))
	require.NoError(t, err)
	assert.Equal(t, "Ada@Example.com", id.Email)

	_, err = auth.Authenticate(ctx, accessHeaders("mallory@example.com", env.sign(t, nil)))
	assert.ErrorIs(t, err, ErrEmailMismatch)

	_, err = auth.Authenticate(ctx, accessHeaders("ada@example.com", ""))
	assert.ErrorIs(t, err, ErrMissingAssertion)

	_, err = auth.Authenticate(ctx, http.Header{})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestAuthenticator_HeaderOnly(t *testing.T) {
	auth := NewAuthenticator(nil)
	assert.False(t, auth.Verifies())

	id, err := auth.Authenticate(context.Background(), accessHeaders("ada@example.com", ""))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)

	_, err = auth.Validate(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCertsURL(t *testing.T) {
	assert.Equal(t, "https://acme.cloudflareaccess.com/cdn-cgi/access/certs", CertsURL(testTeam))
}
