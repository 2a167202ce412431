package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/deployscloud/internal/adapter/cloudflare"
	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
	"github.com/pscheid92/deployscloud/internal/auth"
	"github.com/pscheid92/deployscloud/internal/dashboard"
	"github.com/pscheid92/deployscloud/internal/domain"
	"github.com/pscheid92/deployscloud/internal/platform/config"
	"github.com/pscheid92/deployscloud/internal/platform/crypto"
	"github.com/pscheid92/deployscloud/web"
)

type identityResolver interface {
	Resolve(ctx context.Context, req auth.Request) auth.Resolution
}

type loginService interface {
	Login(ctx context.Context, email, password string) (*domain.StoredCredential, error)
	LoginWithToken(ctx context.Context, token string) (*domain.StoredCredential, error)
	CompleteOAuth(ctx context.Context, code, state string) (*domain.StoredCredential, error)
	OAuthURL(provider, state string) string
}

type summaryLoader interface {
	Load(ctx context.Context, token string) dashboard.Summary
}

type accessAuthenticator interface {
	Authenticate(ctx context.Context, h http.Header) (cloudflare.Identity, error)
	Validate(ctx context.Context, assertion string) (*cloudflare.Claims, error)
}

// Dependencies are the collaborators wired in by main.
type Dependencies struct {
	Resolver  identityResolver
	Auth      loginService
	Dashboard summaryLoader

	// Access is nil unless Cloudflare Access is enabled.
	Access accessAuthenticator
	// Credentials switches the token vault to server-side storage when set.
	Credentials domain.CredentialStore

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	HealthChecks   []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	resolver  identityResolver
	auth      loginService
	dashboard summaryLoader
	access    accessAuthenticator
	vault     tokenVault

	templates *template.Template

	sessionStore   *sessions.CookieStore
	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	sealer, err := crypto.NewSealer(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to set up token sealing: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	sessionStore := newSessionStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.IsProduction())

	srv := &Server{
		echo:           e,
		config:         cfg,
		resolver:       deps.Resolver,
		auth:           deps.Auth,
		dashboard:      deps.Dashboard,
		access:         deps.Access,
		vault:          newVault(sessionStore, sealer, deps.Credentials, cfg.SessionMaxAge),
		templates:      templates,
		sessionStore:   sessionStore,
		httpMetrics:    deps.HTTPMetrics,
		metricsHandler: deps.MetricsHandler,
		healthChecks:   deps.HealthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func newVault(store *sessions.CookieStore, sealer crypto.Sealer, creds domain.CredentialStore, ttl time.Duration) tokenVault {
	if creds != nil {
		return newRedisVault(store, creds, ttl)
	}
	return newCookieVault(store, sealer)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	return s.renderTemplateStatus(c, http.StatusOK, name, data)
}

func (s *Server) renderTemplateStatus(c echo.Context, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(status, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}
