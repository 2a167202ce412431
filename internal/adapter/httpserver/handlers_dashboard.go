package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/deployscloud/internal/dashboard"
	"github.com/pscheid92/deployscloud/internal/domain"
)

const msgLoadFailed = "Failed to load data from Coolify"

type dashboardView struct {
	layout
	Method     domain.AuthMethod
	Summary    dashboard.Summary
	Recent     []dashboard.RecentApplication
	CoolifyURL string
	LoadError  string
}

func (s *Server) registerDashboardRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/dashboard", s.handleDashboard, csrfMiddleware, s.identify, s.requireAuth)
}

// handleDashboard loads all three sections on every visit; Retry and
// Refresh Data simply reload the page.
func (s *Server) handleDashboard(c echo.Context) error {
	id := identityFrom(c)
	summary := s.dashboard.Load(c.Request().Context(), id.Token)

	view := dashboardView{
		layout:     s.newLayout(c, "Dashboard"),
		Method:     id.Method,
		Summary:    summary,
		Recent:     summary.RecentApplications(),
		CoolifyURL: s.config.CoolifyBaseURL,
	}
	if summary.AllFailed() {
		view.LoadError = msgLoadFailed
	}
	return s.renderTemplate(c, "dashboard.html", view)
}
