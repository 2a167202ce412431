package auth

import (
	"context"
	"net/http"

	"github.com/pscheid92/deployscloud/internal/adapter/cloudflare"
	"github.com/pscheid92/deployscloud/internal/domain"
)

type mockCoolify struct {
	loginFn       func(ctx context.Context, email, password string) (*domain.LoginResponse, error)
	exchangeFn    func(ctx context.Context, code, state string) (*domain.LoginResponse, error)
	currentTeamFn func(ctx context.Context, token string) (*domain.Team, error)
	calls         int
	tokensSeen    []string
}

func (m *mockCoolify) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	m.calls++
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return &domain.LoginResponse{Success: true, Token: "1|token"}, nil
}

func (m *mockCoolify) ExchangeOAuthCode(ctx context.Context, code, state string) (*domain.LoginResponse, error) {
	m.calls++
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code, state)
	}
	return &domain.LoginResponse{Success: true, Token: "1|oauth"}, nil
}

func (m *mockCoolify) OAuthURL(provider, state string) string {
	return "http://coolify.test/auth/" + provider + "?state=" + state
}

func (m *mockCoolify) CurrentTeam(ctx context.Context, token string) (*domain.Team, error) {
	m.calls++
	m.tokensSeen = append(m.tokensSeen, token)
	if m.currentTeamFn != nil {
		return m.currentTeamFn(ctx, token)
	}
	return &domain.Team{ID: 0, Name: "Root Team"}, nil
}

func (m *mockCoolify) Teams(context.Context, string) ([]domain.Team, error) { return nil, nil }
func (m *mockCoolify) Applications(context.Context, string) ([]domain.Application, error) {
	return nil, nil
}
func (m *mockCoolify) Servers(context.Context, string) ([]domain.Server, error) { return nil, nil }
func (m *mockCoolify) Health(context.Context) error                           { return nil }
func (m *mockCoolify) BaseURL() string                                        { return "http://coolify.test" }

type mockAccess struct {
	authenticateFn func(ctx context.Context, h http.Header) (cloudflare.Identity, error)
}

func (m *mockAccess) Authenticate(ctx context.Context, h http.Header) (cloudflare.Identity, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, h)
	}
	id, ok := cloudflare.FromHeaders(h)
	if !ok {
		return cloudflare.Identity{}, cloudflare.ErrNoIdentity
	}
	return id, nil
}
