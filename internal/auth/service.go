package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pscheid92/deployscloud/internal/adapter/coolify"
	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
	"github.com/pscheid92/deployscloud/internal/domain"
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgConnectionFailed   = "Connection failed. Please check your Coolify instance URL."
	MsgLoginFailed        = "Login failed. Please try again."
	MsgMissingCredentials = "Please enter your email and password"
	MsgMissingToken       = "Please enter your API token"
	MsgInvalidToken       = "Invalid API token. Please check your token and try again."
	MsgOAuthFailed        = "OAuth login failed. Please try again."
)

type LoginErrorKind int

const (
	KindValidation  LoginErrorKind = iota // rejected before any network call
	KindRejected                          // Coolify said no
	KindUnavailable                       // Coolify could not be reached
)

// LoginError carries the message shown on the login form.
type LoginError struct {
	Kind    LoginErrorKind
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *LoginError) Unwrap() error { return e.Err }

type Service struct {
	api     domain.CoolifyAPI
	metrics *metrics.AuthMetrics
}

func NewService(api domain.CoolifyAPI, m *metrics.AuthMetrics) *Service {
	return &Service{api: api, metrics: m}
}

// Login exchanges email and password for a token via POST /api/v1/auth/login.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.StoredCredential, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, s.fail(ctx, domain.AuthMethodCredentials, &LoginError{Kind: KindValidation, Message: MsgMissingCredentials})
	}

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		if coolify.IsTransport(err) {
			return nil, s.fail(ctx, domain.AuthMethodCredentials, &LoginError{Kind: KindUnavailable, Message: MsgConnectionFailed, Err: err})
		}
		return nil, s.fail(ctx, domain.AuthMethodCredentials, &LoginError{Kind: KindRejected, Message: MsgInvalidCredentials, Err: err})
	}

	if resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = MsgLoginFailed
		}
		return nil, s.fail(ctx, domain.AuthMethodCredentials, &LoginError{Kind: KindRejected, Message: msg})
	}

	s.metrics.Login(string(domain.AuthMethodCredentials), "success")
	return &domain.StoredCredential{
		Token:   resp.Token,
		Method:  domain.AuthMethodCredentials,
		Profile: profileFromLogin(resp.User),
	}, nil
}

// LoginWithToken accepts a pasted API token after a single /teams/current
// round trip. The token's shape is never checked locally.
func (s *Service) LoginWithToken(ctx context.Context, token string) (*domain.StoredCredential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, s.fail(ctx, domain.AuthMethodToken, &LoginError{Kind: KindValidation, Message: MsgMissingToken})
	}

	if _, err := s.api.CurrentTeam(ctx, token); err != nil {
		kind := KindRejected
		if coolify.IsTransport(err) {
			kind = KindUnavailable
		}
		return nil, s.fail(ctx, domain.AuthMethodToken, &LoginError{Kind: kind, Message: MsgInvalidToken, Err: err})
	}

	s.metrics.Login(string(domain.AuthMethodToken), "success")
	return &domain.StoredCredential{Token: token, Method: domain.AuthMethodToken}, nil
}

// CompleteOAuth finishes the provider hand-off by posting code and state to
// Coolify's /auth/callback.
func (s *Service) CompleteOAuth(ctx context.Context, code, state string) (*domain.StoredCredential, error) {
	if code == "" {
		return nil, s.fail(ctx, domain.AuthMethodOAuth, &LoginError{Kind: KindValidation, Message: MsgOAuthFailed})
	}

	resp, err := s.api.ExchangeOAuthCode(ctx, code, state)
	if err != nil {
		kind := KindRejected
		if coolify.IsTransport(err) {
			kind = KindUnavailable
		}
		return nil, s.fail(ctx, domain.AuthMethodOAuth, &LoginError{Kind: kind, Message: MsgOAuthFailed, Err: err})
	}
	if resp.Token == "" {
		return nil, s.fail(ctx, domain.AuthMethodOAuth, &LoginError{Kind: KindRejected, Message: MsgOAuthFailed})
	}

	s.metrics.Login(string(domain.AuthMethodOAuth), "success")
	return &domain.StoredCredential{
		Token:   resp.Token,
		Method:  domain.AuthMethodOAuth,
		Profile: profileFromLogin(resp.User),
	}, nil
}

// OAuthURL is the Coolify page that starts a login with provider.
func (s *Service) OAuthURL(provider, state string) string {
	return s.api.OAuthURL(provider, state)
}

func (s *Service) fail(ctx context.Context, method domain.AuthMethod, err *LoginError) error {
	s.metrics.Login(string(method), "failure")
	if err.Kind != KindValidation {
		slog.InfoContext(ctx, "Login failed", "method", method, "message", err.Message, "error", errors.Unwrap(err))
	}
	return err
}

func profileFromLogin(u *domain.LoginUser) *domain.User {
	if u == nil {
		return nil
	}
	p := &domain.User{Name: u.Name, Email: u.Email}
	if u.ID != 0 {
		p.ID = strconv.Itoa(u.ID)
	}
	if u.TeamID != 0 {
		teamID := u.TeamID
		p.TeamID = &teamID
	}
	return p
}
