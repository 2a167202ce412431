package coolify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
	"github.com/pscheid92/deployscloud/internal/domain"
	"github.com/pscheid92/deployscloud/internal/platform/correlation"
	"github.com/pscheid92/deployscloud/internal/platform/version"
)

const (
	apiPrefix       = "/api/v1"
	maxErrorBodyLen = 4 << 10
)

var _ domain.CoolifyAPI = (*Client)(nil)

// Client talks to a single Coolify instance. It holds no credentials: every
// authenticated call takes the bearer token of the current request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker[any]
	metrics    *metrics.UpstreamMetrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBreaker(cb circuitbreaker.CircuitBreaker[any]) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(c.metrics)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var resp domain.LoginResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ExchangeOAuthCode(ctx context.Context, code, state string) (*domain.LoginResponse, error) {
	body := map[string]string{"code": code, "state": state}

	var resp domain.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/callback", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OAuthURL is where the browser is sent to start an OAuth login with provider.
func (c *Client) OAuthURL(provider, state string) string {
	q := url.Values{}
	q.Set("state", state)
	return c.baseURL + "/auth/" + url.PathEscape(provider) + "?" + q.Encode()
}

func (c *Client) CurrentTeam(ctx context.Context, token string) (*domain.Team, error) {
	var team domain.Team
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/teams/current", token, nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) Teams(ctx context.Context, token string) ([]domain.Team, error) {
	var teams []domain.Team
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/teams", token, nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) Applications(ctx context.Context, token string) ([]domain.Application, error) {
	var apps []domain.Application
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/applications", token, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (c *Client) Servers(ctx context.Context, token string) ([]domain.Server, error) {
	var servers []domain.Server
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/servers", token, nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// Health calls the unauthenticated /api/health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", "", nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body, out any) error {
	if !c.breaker.TryAcquirePermit() {
		c.metrics.ObserveRequest(upstreamName, endpoint, 0, 0)
		return fmt.Errorf("%s %s: %w", method, endpoint, ErrCircuitOpen)
	}

	req, err := c.newRequest(ctx, method, endpoint, token, body)
	if err != nil {
		c.breaker.RecordSuccess()
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordError(err)
		c.metrics.ObserveRequest(upstreamName, endpoint, 0, time.Since(start))
		return fmt.Errorf("coolify %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(upstreamName, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := correlation.ID(ctx); ok {
		req.Header.Set(correlation.HeaderRequestID, id)
	}
	return req, nil
}

// errorMessage extracts {"message": "..."} from a Coolify error body.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyLen))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		return payload.Message
	}
	return ""
}
