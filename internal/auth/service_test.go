package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/deployscloud/internal/adapter/coolify"
	"github.com/pscheid92/deployscloud/internal/domain"
)

func requireLoginError(t *testing.T, err error, kind LoginErrorKind, msg string) {
	t.Helper()
	le, ok := errors.AsType[*LoginError](err)
	require.True(t, ok, "expected *LoginError, got %T: %v", err, err)
	assert.Equal(t, kind, le.Kind)
	assert.Equal(t, msg, le.Message)
}

func TestLogin_Success(t *testing.T) {
	api := &mockCoolify{loginFn: func(_ context.Context, email, password string) (*domain.LoginResponse, error) {
		assert.Equal(t, "ada@example.com", email)
		assert.Equal(t, "hunter2", password)
		return &domain.LoginResponse{
			Success: true,
			Token:   "5|fresh",
			User:    &domain.LoginUser{ID: 12, Name: "Ada", Email: email, TeamID: 3},
		}, nil
	}}
	svc := NewService(api, nil)

	cred, err := svc.Login(context.Background(), " ada@example.com ", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "5|fresh", cred.Token)
	assert.Equal(t, domain.AuthMethodCredentials, cred.Method)
	require.NotNil(t, cred.Profile)
	assert.Equal(t, "12", cred.Profile.ID)
	assert.Equal(t, "3", cred.Profile.TeamLabel())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name string
		resp *domain.LoginResponse
		err  error
		kind LoginErrorKind
		msg  string
	}{
		{"non-2xx", nil, &coolify.APIError{StatusCode: http.StatusUnprocessableEntity}, KindRejected, MsgInvalidCredentials},
		{"unreachable", nil, fmt.Errorf("coolify POST: %w", errors.New("connection refused")), KindUnavailable, MsgConnectionFailed},
		{"no token with message", &domain.LoginResponse{Message: "Account locked"}, nil, KindRejected, "Account locked"},
		{"no token", &domain.LoginResponse{}, nil, KindRejected, MsgLoginFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockCoolify{loginFn: func(context.Context, string, string) (*domain.LoginResponse, error) {
				return tt.resp, tt.err
			}}

			cred, err := NewService(api, nil).Login(context.Background(), "ada@example.com", "pw")

			assert.Nil(t, cred)
			requireLoginError(t, err, tt.kind, tt.msg)
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	api := &mockCoolify{}
	_, err := NewService(api, nil).Login(context.Background(), "  ", "pw")

	requireLoginError(t, err, KindValidation, MsgMissingCredentials)
	assert.Zero(t, api.calls)
}

func TestLoginWithToken_EmptyTokenMakesNoCall(t *testing.T) {
	for _, token := range []string{"", "   ", "\t\n"} {
		api := &mockCoolify{}

		cred, err := NewService(api, nil).LoginWithToken(context.Background(), token)

		assert.Nil(t, cred)
		requireLoginError(t, err, KindValidation, MsgMissingToken)
		assert.Zero(t, api.calls)
	}
}

func TestLoginWithToken_Valid(t *testing.T) {
	api := &mockCoolify{}

	cred, err := NewService(api, nil).LoginWithToken(context.Background(), "  3|WaobqX9tJQ  ")
	require.NoError(t, err)

	assert.Equal(t, "3|WaobqX9tJQ", cred.Token)
	assert.Equal(t, domain.AuthMethodToken, cred.Method)
	assert.Nil(t, cred.Profile)
	assert.Equal(t, []string{"3|WaobqX9tJQ"}, api.tokensSeen)
}

func TestLoginWithToken_Invalid(t *testing.T) {
	api := &mockCoolify{currentTeamFn: func(context.Context, string) (*domain.Team, error) {
		return nil, &coolify.APIError{StatusCode: http.StatusUnauthorized}
	}}

	_, err := NewService(api, nil).LoginWithToken(context.Background(), "garbage")

	requireLoginError(t, err, KindRejected, MsgInvalidToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCompleteOAuth(t *testing.T) {
	api := &mockCoolify{exchangeFn: func(_ context.Context, code, state string) (*domain.LoginResponse, error) {
		assert.Equal(t, "abc", code)
		assert.Equal(t, "xyz", state)
		return &domain.LoginResponse{Token: "7|oauth", User: &domain.LoginUser{Name: "Ada"}}, nil
	}}

	cred, err := NewService(api, nil).CompleteOAuth(context.Background(), "abc", "xyz")
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodOAuth, cred.Method)
	assert.Equal(t, "Ada", cred.Profile.Name)
	assert.Nil(t, cred.Profile.TeamID)
}

func TestCompleteOAuth_Failures(t *testing.T) {
	api := &mockCoolify{exchangeFn: func(context.Context, string, string) (*domain.LoginResponse, error) {
		return &domain.LoginResponse{}, nil
	}}
	svc := NewService(api, nil)

	_, err := svc.CompleteOAuth(context.Background(), "abc", "xyz")
	requireLoginError(t, err, KindRejected, MsgOAuthFailed)

	_, err = svc.CompleteOAuth(context.Background(), "", "xyz")
	requireLoginError(t, err, KindValidation, MsgOAuthFailed)
}
