package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/deployscloud/internal/auth"
	"github.com/pscheid92/deployscloud/internal/domain"
	apperrors "github.com/pscheid92/deployscloud/internal/platform/errors"
)

const oauthTimeout = 10 * time.Second

type loginView struct {
	layout
	Error             string
	Email             string
	OAuthProviders    []string
	CloudflareEnabled bool
	CoolifyURL        string
}

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/login", s.handleLoginPage, csrfMiddleware, s.identify)
	s.echo.POST("/login", s.handleLogin, rateLimiter, csrfMiddleware)
	s.echo.GET("/login/token", s.handleTokenLoginPage, csrfMiddleware, s.identify)
	s.echo.POST("/login/token", s.handleTokenLogin, rateLimiter, csrfMiddleware)
	s.echo.GET("/auth/oauth/:provider", s.handleOAuthStart, rateLimiter)
	s.echo.GET("/auth/callback", s.handleOAuthCallback, rateLimiter, csrfMiddleware)
	s.echo.POST("/logout", s.handleLogout, csrfMiddleware, s.identify)
}

func (s *Server) newLoginView(c echo.Context, title string) loginView {
	return loginView{
		layout:            s.newLayout(c, title),
		OAuthProviders:    s.config.OAuthProviders(),
		CloudflareEnabled: s.config.CloudflareAccessEnabled,
		CoolifyURL:        s.config.CoolifyBaseURL,
	}
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if identityFrom(c) != nil {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return s.renderTemplate(c, "login.html", s.newLoginView(c, "Sign in"))
}

func (s *Server) handleTokenLoginPage(c echo.Context) error {
	if identityFrom(c) != nil {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return s.renderTemplate(c, "token_login.html", s.newLoginView(c, "Sign in with API token"))
}

func (s *Server) handleLogin(c echo.Context) error {
	email := c.FormValue("email")

	cred, err := s.auth.Login(c.Request().Context(), email, c.FormValue("password"))
	if err != nil {
		view := s.newLoginView(c, "Sign in")
		view.Email = email
		return s.renderLoginError(c, "login.html", view, err)
	}
	return s.completeLogin(c, cred)
}

func (s *Server) handleTokenLogin(c echo.Context) error {
	cred, err := s.auth.LoginWithToken(c.Request().Context(), c.FormValue("token"))
	if err != nil {
		return s.renderLoginError(c, "token_login.html", s.newLoginView(c, "Sign in with API token"), err)
	}
	return s.completeLogin(c, cred)
}

func (s *Server) handleOAuthStart(c echo.Context) error {
	provider := c.Param("provider")
	if !slices.Contains(s.config.OAuthProviders(), provider) {
		return apperrors.NotFoundError("unknown OAuth provider").WithField("provider", provider)
	}

	state, err := generateOAuthState()
	if err != nil {
		return apperrors.InternalError("failed to generate OAuth state", err)
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to decode session for OAuth state", "error", err)
	}
	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save OAuth state session", err)
	}

	return c.Redirect(http.StatusFound, s.auth.OAuthURL(provider, state))
}

func (s *Server) handleOAuthCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" || c.QueryParam("error") != "" {
		view := s.newLoginView(c, "Sign in")
		view.Error = auth.MsgOAuthFailed
		return s.renderTemplateStatus(c, http.StatusBadRequest, "login.html", view)
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return apperrors.ValidationError("invalid session")
	}

	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.ValidationError("missing OAuth state")
	}
	state := c.QueryParam("state")
	if state != expectedState {
		return apperrors.ValidationError("invalid OAuth state")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	cred, err := s.auth.CompleteOAuth(ctx, code, state)
	if err != nil {
		return s.renderLoginError(c, "login.html", s.newLoginView(c, "Sign in"), err)
	}
	return s.completeLogin(c, cred)
}

func (s *Server) handleLogout(c echo.Context) error {
	if id := identityFrom(c); id != nil && id.Method == domain.AuthMethodCloudflare {
		return c.Redirect(http.StatusSeeOther, s.config.CloudflareLogoutURL)
	}

	if err := s.vault.Clear(c); err != nil {
		return apperrors.InternalError("failed to clear session", err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// completeLogin persists the credential in a fresh session and moves on to
// the dashboard.
func (s *Server) completeLogin(c echo.Context, cred *domain.StoredCredential) error {
	if err := s.vault.Save(c, *cred); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(c.Request().Context(), "User logged in", "auth_method", cred.Method)

	if err := c.Redirect(http.StatusSeeOther, "/dashboard"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) renderLoginError(c echo.Context, name string, view loginView, err error) error {
	loginErr, ok := errors.AsType[*auth.LoginError](err)
	if !ok {
		return apperrors.InternalError("login failed", err)
	}

	view.Error = loginErr.Message
	return s.renderTemplateStatus(c, loginErrorStatus(loginErr.Kind), name, view)
}

func loginErrorStatus(kind auth.LoginErrorKind) int {
	switch kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
