package cloudflare

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
	"github.com/pscheid92/deployscloud/internal/platform/version"
)

const (
	keyRefreshInterval = 10 * time.Minute
	certsTimeout       = 5 * time.Second
	upstreamName       = "cloudflare_access"
)

var ErrUnknownKey = errors.New("cloudflare: unknown signing key")

// JWK is one RSA entry of the Access certs document.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// CertsURL is the Access JWKS endpoint of a team.
func CertsURL(teamDomain string) string {
	return "https://" + teamDomain + "/cdn-cgi/access/certs"
}

// KeySet caches the team's public keys. It refetches at most once every ten
// minutes, including when an unknown kid shows up.
type KeySet struct {
	url        string
	httpClient *http.Client
	clock      clockwork.Clock
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.UpstreamMetrics

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewKeySet(url string, clock clockwork.Clock, m *metrics.UpstreamMetrics) *KeySet {
	return &KeySet{
		url:        url,
		httpClient: &http.Client{Timeout: certsTimeout},
		clock:      clock,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        upstreamName,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
				m.BreakerChanged(upstreamName, to.String())
			},
		}),
		metrics: m,
		keys:    make(map[string]*rsa.PublicKey),
	}
}

// Key returns the public key for kid, refreshing the set when it is stale.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	key, ok := k.keys[kid]
	fresh := !k.fetchedAt.IsZero() && k.clock.Since(k.fetchedAt) < keyRefreshInterval
	k.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if !fresh {
		if err := k.Refresh(ctx); err != nil {
			// serve a stale key rather than locking everybody out
			if ok {
				slog.WarnContext(ctx, "Access certs refresh failed, using cached key", "error", err)
				return key, nil
			}
			return nil, err
		}
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
}

// Refresh fetches the certs document and replaces the cached keys.
func (k *KeySet) Refresh(ctx context.Context) error {
	res, err := k.breaker.Execute(func() (any, error) {
		return k.fetch(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch access certs: %w", err)
	}

	jwks := res.(*JWKS)
	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, j := range jwks.Keys {
		if j.Kty != "RSA" {
			continue
		}
		pub, err := parseRSA(j)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", j.Kid, err)
		}
		keys[j.Kid] = pub
	}

	k.mu.Lock()
	k.keys = keys
	k.fetchedAt = k.clock.Now()
	k.mu.Unlock()

	slog.DebugContext(ctx, "Access certs refreshed", "keys", len(keys))
	return nil
}

// Ready reports whether at least one key has been loaded.
func (k *KeySet) Ready() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

func (k *KeySet) fetch(ctx context.Context) (*JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create certs request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := k.clock.Now()
	resp, err := k.httpClient.Do(req)
	if err != nil {
		k.metrics.ObserveRequest(upstreamName, "/cdn-cgi/access/certs", 0, k.clock.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	k.metrics.ObserveRequest(upstreamName, "/cdn-cgi/access/certs", resp.StatusCode, k.clock.Since(start))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("certs endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode certs: %w", err)
	}
	return &jwks, nil
}

func parseRSA(j JWK) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
