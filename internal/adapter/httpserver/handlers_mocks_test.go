package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pscheid92/deployscloud/internal/adapter/cloudflare"
	"github.com/pscheid92/deployscloud/internal/auth"
	"github.com/pscheid92/deployscloud/internal/dashboard"
	"github.com/pscheid92/deployscloud/internal/domain"
	"github.com/pscheid92/deployscloud/internal/platform/config"
)

const testSessionSecret = "test-secret-key-32-bytes-long!!!"

// --- Mock implementations ---

// mockResolver authenticates every request that carries a stored credential.
type mockResolver struct {
	resolveFn func(ctx context.Context, req auth.Request) auth.Resolution
	mu        sync.Mutex
	seen      []*domain.StoredCredential
}

func (m *mockResolver) Resolve(ctx context.Context, req auth.Request) auth.Resolution {
	m.mu.Lock()
	m.seen = append(m.seen, req.Credential)
	m.mu.Unlock()

	if m.resolveFn != nil {
		return m.resolveFn(ctx, req)
	}
	if req.Credential == nil {
		return auth.Resolution{}
	}
	return auth.Resolution{
		Identity: &domain.Identity{
			User:   domain.User{Name: "Root User", Email: "root@example.com"},
			Method: req.Credential.Method,
			Token:  req.Credential.Token,
		},
		Strategy: auth.StrategyStoredToken,
	}
}

func (m *mockResolver) lastCredential() *domain.StoredCredential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.seen) == 0 {
		return nil
	}
	return m.seen[len(m.seen)-1]
}

type mockLoginService struct {
	loginFn    func(ctx context.Context, email, password string) (*domain.StoredCredential, error)
	tokenFn    func(ctx context.Context, token string) (*domain.StoredCredential, error)
	completeFn func(ctx context.Context, code, state string) (*domain.StoredCredential, error)
}

func (m *mockLoginService) Login(ctx context.Context, email, password string) (*domain.StoredCredential, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return &domain.StoredCredential{Token: "1|login", Method: domain.AuthMethodCredentials}, nil
}

func (m *mockLoginService) LoginWithToken(ctx context.Context, token string) (*domain.StoredCredential, error) {
	if m.tokenFn != nil {
		return m.tokenFn(ctx, token)
	}
	return &domain.StoredCredential{Token: token, Method: domain.AuthMethodToken}, nil
}

func (m *mockLoginService) CompleteOAuth(ctx context.Context, code, state string) (*domain.StoredCredential, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, code, state)
	}
	return &domain.StoredCredential{Token: "1|oauth", Method: domain.AuthMethodOAuth}, nil
}

func (m *mockLoginService) OAuthURL(provider, state string) string {
	return "http://coolify.test/auth/" + provider + "?state=" + url.QueryEscape(state)
}

type mockLoader struct {
	summary dashboard.Summary
	mu      sync.Mutex
	tokens  []string
}

func (m *mockLoader) Load(_ context.Context, token string) dashboard.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	return m.summary
}

func (m *mockLoader) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type mockAccess struct {
	identity cloudflare.Identity
	claims   *cloudflare.Claims
	err      error
}

func (m *mockAccess) Authenticate(_ context.Context, h http.Header) (cloudflare.Identity, error) {
	if m.err != nil {
		return cloudflare.Identity{}, m.err
	}
	if h.Get(cloudflare.HeaderEmail) == "" {
		return cloudflare.Identity{}, cloudflare.ErrNoIdentity
	}
	return m.identity, nil
}

func (m *mockAccess) Validate(_ context.Context, _ string) (*cloudflare.Claims, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.claims == nil {
		return nil, errors.New("invalid token")
	}
	return m.claims, nil
}

// memoryCredentialStore is an in-process domain.CredentialStore.
type memoryCredentialStore struct {
	mu    sync.Mutex
	creds map[string]domain.StoredCredential
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{creds: make(map[string]domain.StoredCredential)}
}

func (m *memoryCredentialStore) Get(_ context.Context, sessionID string) (*domain.StoredCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[sessionID]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return &cred, nil
}

func (m *memoryCredentialStore) Put(_ context.Context, sessionID string, cred domain.StoredCredential, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[sessionID] = cred
	return nil
}

func (m *memoryCredentialStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, sessionID)
	return nil
}

func (m *memoryCredentialStore) Ping(context.Context) error { return nil }

func (m *memoryCredentialStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.creds)
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		Port:                "0",
		SessionSecret:       testSessionSecret,
		SessionMaxAge:       time.Hour,
		CoolifyBaseURL:      "http://coolify.test",
		CoolifyTimeout:      time.Second,
		CloudflareLogoutURL: "/cdn-cgi/access/logout",
		GitHubClientID:      "gh-client",
	}
}

func newTestServer(t *testing.T, deps Dependencies, opts ...func(*config.Config)) *Server {
	t.Helper()

	if deps.Resolver == nil {
		deps.Resolver = &mockResolver{}
	}
	if deps.Auth == nil {
		deps.Auth = &mockLoginService{}
	}
	if deps.Dashboard == nil {
		deps.Dashboard = &mockLoader{}
	}

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	srv, err := NewServer(cfg, deps)
	require.NoError(t, err)
	return srv
}

// browser replays cookies between requests the way a user agent would.
type browser struct {
	t       *testing.T
	srv     *Server
	cookies map[string]*http.Cookie
	header  http.Header
}

func newBrowser(t *testing.T, srv *Server) *browser {
	return &browser{t: t, srv: srv, cookies: make(map[string]*http.Cookie), header: make(http.Header)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for k, v := range b.header {
		req.Header[k] = v
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.srv.Handler().ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// postForm submits a form with the CSRF token obtained from a prior GET.
func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if _, ok := b.cookies[csrfTokenCookieName]; !ok {
		b.get("/login")
	}
	csrf, ok := b.cookies[csrfTokenCookieName]
	require.True(b.t, ok, "CSRF cookie should be set")

	form.Set("csrf_token", csrf.Value)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) hasSession() bool {
	_, ok := b.cookies[sessionName]
	return ok
}
