package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/deployscloud/internal/dashboard"
	"github.com/pscheid92/deployscloud/internal/domain"
	apperrors "github.com/pscheid92/deployscloud/internal/platform/errors"
)

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Method        domain.AuthMethod `json:"method,omitempty"`
	User          *domain.User      `json:"user,omitempty"`
}

type summaryCounts struct {
	Applications int `json:"applications"`
	Servers      int `json:"servers"`
	Teams        int `json:"teams"`
}

type summaryResponse struct {
	dashboard.Summary
	Counts summaryCounts `json:"counts"`
}

type accessStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email"`
}

type validateRequest struct {
	Token string `json:"token" form:"token"`
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
}

func (s *Server) registerAPIRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/api/session", s.handleSession, s.identify)
	s.echo.GET("/api/dashboard/summary", s.handleSummary, s.identify, s.requireAPIAuth)

	s.echo.GET("/api/auth/status", s.handleAccessStatus)
	s.echo.GET("/api/auth/user", s.handleAccessUser)
	s.echo.POST("/api/auth/validate", s.handleAccessValidate, rateLimiter)
}

func (s *Server) handleSession(c echo.Context) error {
	resp := sessionResponse{}
	if id := identityFrom(c); id != nil {
		resp.Authenticated = true
		resp.Method = id.Method
		resp.User = &id.User
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write session response: %w", err)
	}
	return nil
}

func (s *Server) handleSummary(c echo.Context) error {
	summary := s.dashboard.Load(c.Request().Context(), identityFrom(c).Token)
	resp := summaryResponse{
		Summary: summary,
		Counts: summaryCounts{
			Applications: len(summary.Applications),
			Servers:      len(summary.Servers),
			Teams:        len(summary.Teams),
		},
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write summary response: %w", err)
	}
	return nil
}

func (s *Server) handleAccessStatus(c echo.Context) error {
	if s.access == nil {
		return apperrors.UnauthorizedError("cloudflare access is not enabled")
	}

	id, err := s.access.Authenticate(c.Request().Context(), c.Request().Header)
	if err != nil {
		return apperrors.UnauthorizedError("not authenticated").WithField("reason", err.Error())
	}

	if err := c.JSON(http.StatusOK, accessStatusResponse{Authenticated: true, Email: id.Email}); err != nil {
		return fmt.Errorf("failed to write status response: %w", err)
	}
	return nil
}

func (s *Server) handleAccessUser(c echo.Context) error {
	if s.access == nil {
		return apperrors.UnauthorizedError("cloudflare access is not enabled")
	}

	id, err := s.access.Authenticate(c.Request().Context(), c.Request().Header)
	if err != nil {
		return apperrors.UnauthorizedError("not authenticated").WithField("reason", err.Error())
	}
	if id.Name == "" {
		id.Name = domain.User{Email: id.Email}.DisplayName()
	}

	if err := c.JSON(http.StatusOK, id); err != nil {
		return fmt.Errorf("failed to write user response: %w", err)
	}
	return nil
}

func (s *Server) handleAccessValidate(c echo.Context) error {
	if s.access == nil {
		return apperrors.UnauthorizedError("cloudflare access is not enabled")
	}

	var req validateRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return apperrors.UnauthorizedError("token is required")
	}

	claims, err := s.access.Validate(c.Request().Context(), req.Token)
	if err != nil {
		return apperrors.UnauthorizedError("invalid token").WithField("reason", err.Error())
	}

	if err := c.JSON(http.StatusOK, validateResponse{Valid: true, Email: claims.Email}); err != nil {
		return fmt.Errorf("failed to write validate response: %w", err)
	}
	return nil
}
