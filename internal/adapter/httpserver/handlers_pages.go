package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/deployscloud/internal/content"
	"github.com/pscheid92/deployscloud/internal/domain"
)

// layout is the data every page template shares.
type layout struct {
	Title     string
	User      *domain.User
	CSRFToken string
}

func (s *Server) newLayout(c echo.Context, title string) layout {
	l := layout{Title: title, CSRFToken: csrfToken(c)}
	if id := identityFrom(c); id != nil {
		l.User = &id.User
	}
	return l
}

type landingView struct {
	layout
	Page content.Landing
}

type pricingView struct {
	layout
	Page content.PricingPage
}

func (s *Server) registerPageRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/", s.handleLanding, csrfMiddleware, s.identify)
	s.echo.GET("/pricing", s.handlePricing, csrfMiddleware, s.identify)
}

func (s *Server) handleLanding(c echo.Context) error {
	return s.renderTemplate(c, "landing.html", landingView{
		layout: s.newLayout(c, "Enterprise Server Infrastructure"),
		Page:   content.NewLanding(),
	})
}

func (s *Server) handlePricing(c echo.Context) error {
	return s.renderTemplate(c, "pricing.html", pricingView{
		layout: s.newLayout(c, "Pricing"),
		Page:   content.NewPricingPage(),
	})
}
