package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pscheid92/deployscloud/internal/adapter/cloudflare"
	"github.com/pscheid92/deployscloud/internal/domain"
)

const (
	StrategyCloudflare  = "cloudflare"
	StrategyStoredToken = "stored_token"
)

type accessAuthenticator interface {
	Authenticate(ctx context.Context, h http.Header) (cloudflare.Identity, error)
}

// CloudflareStrategy trusts Cloudflare Access. The caller has no Coolify
// account of their own, so API calls use the pre-provisioned service token,
// or the caller's stored token when no service token is configured.
type CloudflareStrategy struct {
	access       accessAuthenticator
	serviceToken string
}

func NewCloudflareStrategy(access accessAuthenticator, serviceToken string) *CloudflareStrategy {
	return &CloudflareStrategy{access: access, serviceToken: serviceToken}
}

func (s *CloudflareStrategy) Name() string { return StrategyCloudflare }

func (s *CloudflareStrategy) Resolve(ctx context.Context, req Request) (*domain.Identity, error) {
	id, err := s.access.Authenticate(ctx, req.Header)
	if errors.Is(err, cloudflare.ErrNoIdentity) {
		return nil, ErrSkip
	}
	if err != nil {
		return nil, err
	}

	token := s.serviceToken
	if token == "" && req.Credential != nil {
		token = req.Credential.Token
	}
	if token == "" {
		slog.WarnContext(ctx, "Access user has no Coolify token, dashboard data will be empty", "email", id.Email)
	}

	user := domain.User{Name: id.Name, Email: id.Email, Groups: id.Groups}
	user.Name = user.DisplayName()

	return &domain.Identity{User: user, Method: domain.AuthMethodCloudflare, Token: token}, nil
}

// StoredTokenStrategy validates the session's token with GET /teams/current.
type StoredTokenStrategy struct {
	api domain.CoolifyAPI
}

func NewStoredTokenStrategy(api domain.CoolifyAPI) *StoredTokenStrategy {
	return &StoredTokenStrategy{api: api}
}

func (s *StoredTokenStrategy) Name() string { return StrategyStoredToken }

func (s *StoredTokenStrategy) Resolve(ctx context.Context, req Request) (*domain.Identity, error) {
	cred := req.Credential
	if cred == nil || cred.Token == "" {
		return nil, ErrSkip
	}

	team, err := s.api.CurrentTeam(ctx, cred.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialRejected, err)
	}

	method := cred.Method
	if method == "" {
		method = domain.AuthMethodToken
	}

	var user domain.User
	if cred.Profile != nil {
		user = *cred.Profile
	} else {
		user = userFromTeam(team)
	}

	return &domain.Identity{User: user, Method: method, Token: cred.Token}, nil
}

func userFromTeam(team *domain.Team) domain.User {
	name := team.Name
	if name == "" {
		name = "User"
	}
	id := team.ID
	return domain.User{Name: name, TeamID: &id}
}
