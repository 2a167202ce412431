package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	ErrNoIdentity       = errors.New("cloudflare: no access identity on request")
	ErrMissingAssertion = errors.New("cloudflare: missing access assertion")
	ErrEmailMismatch    = errors.New("cloudflare: assertion email does not match header")
	ErrNotConfigured    = errors.New("cloudflare: assertion verification is not configured")
)

// Claims are the Access application token claims we care about.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	Type          string `json:"type,omitempty"`
	IdentityNonce string `json:"identity_nonce,omitempty"`
	Country       string `json:"country,omitempty"`
}

// Verifier checks Cf-Access-Jwt-Assertion tokens: RS256, issued by the team
// domain, addressed to the application audience and not expired.
type Verifier struct {
	keys     *KeySet
	issuer   string
	audience string
	clock    clockwork.Clock
}

func NewVerifier(keys *KeySet, teamDomain, audience string, clock clockwork.Clock) *Verifier {
	return &Verifier{
		keys:     keys,
		issuer:   "https://" + teamDomain,
		audience: audience,
		clock:    clock,
	}
}

func (v *Verifier) Verify(ctx context.Context, assertion string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(v.clock.Now),
	)

	token, err := parser.ParseWithClaims(assertion, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("cloudflare: verify assertion: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("cloudflare: invalid assertion claims")
	}
	return claims, nil
}

// Authenticator turns request headers into a trusted Identity.
type Authenticator struct {
	verifier *Verifier
}

// NewAuthenticator with a nil verifier trusts the headers as-is, which is
// only safe when the service is reachable exclusively through Access.
func NewAuthenticator(verifier *Verifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

func (a *Authenticator) Verifies() bool { return a.verifier != nil }

func (a *Authenticator) Authenticate(ctx context.Context, h http.Header) (Identity, error) {
	id, ok := FromHeaders(h)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	if a.verifier == nil {
		return id, nil
	}

	if id.Assertion == "" {
		return Identity{}, ErrMissingAssertion
	}
	claims, err := a.verifier.Verify(ctx, id.Assertion)
	if err != nil {
		return Identity{}, err
	}
	if !strings.EqualFold(claims.Email, id.Email) {
		return Identity{}, ErrEmailMismatch
	}
	return id, nil
}

// Validate checks a bare assertion, as posted to /api/auth/validate.
func (a *Authenticator) Validate(ctx context.Context, assertion string) (*Claims, error) {
	if a.verifier == nil {
		return nil, ErrNotConfigured
	}
	return a.verifier.Verify(ctx, assertion)
}
