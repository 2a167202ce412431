// Package dashboard loads the three resource lists shown on the dashboard.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
	"github.com/pscheid92/deployscloud/internal/domain"
)

const (
	SectionApplications = "applications"
	SectionServers      = "servers"
	SectionTeams        = "teams"

	recentLimit = 5
)

// Summary holds three independent lists. A failed section is empty and
// listed in Failed.
type Summary struct {
	Applications []domain.Application `json:"applications"`
	Servers      []domain.Server      `json:"servers"`
	Teams        []domain.Team        `json:"teams"`
	Failed       []string             `json:"failed,omitempty"`
}

// AllFailed is true when not a single section could be loaded.
func (s Summary) AllFailed() bool { return len(s.Failed) == 3 }

// RecentApplication is a display row with fallbacks already applied.
type RecentApplication struct {
	Name        string
	Description string
	Status      string
}

// RecentApplications returns up to five applications in the order Coolify
// returned them.
func (s Summary) RecentApplications() []RecentApplication {
	n := min(len(s.Applications), recentLimit)
	rows := make([]RecentApplication, 0, n)
	for i, app := range s.Applications[:n] {
		row := RecentApplication{Name: app.Name, Description: app.Description, Status: app.Status}
		if row.Name == "" {
			row.Name = fmt.Sprintf("Application %d", i+1)
		}
		if row.Description == "" {
			row.Description = "No description"
		}
		rows = append(rows, row)
	}
	return rows
}

type lister interface {
	Applications(ctx context.Context, token string) ([]domain.Application, error)
	Servers(ctx context.Context, token string) ([]domain.Server, error)
	Teams(ctx context.Context, token string) ([]domain.Team, error)
}

type Loader struct {
	api     lister
	metrics *metrics.DashboardMetrics
}

func NewLoader(api lister, m *metrics.DashboardMetrics) *Loader {
	return &Loader{api: api, metrics: m}
}

// Load issues the three list requests concurrently. A failing request never
// cancels the others; nothing is cached between calls.
func (l *Loader) Load(ctx context.Context, token string) Summary {
	start := time.Now()

	var (
		g       errgroup.Group
		summary Summary
		appsErr error
		srvErr  error
		teamErr error
	)

	g.Go(func() error {
		summary.Applications, appsErr = l.api.Applications(ctx, token)
		return nil
	})
	g.Go(func() error {
		summary.Servers, srvErr = l.api.Servers(ctx, token)
		return nil
	})
	g.Go(func() error {
		summary.Teams, teamErr = l.api.Teams(ctx, token)
		return nil
	})
	_ = g.Wait()

	for _, r := range []struct {
		section string
		err     error
	}{
		{SectionApplications, appsErr},
		{SectionServers, srvErr},
		{SectionTeams, teamErr},
	} {
		if r.err != nil {
			slog.WarnContext(ctx, "Dashboard section failed to load", "section", r.section, "error", r.err)
			summary.Failed = append(summary.Failed, r.section)
		}
	}

	if appsErr != nil || summary.Applications == nil {
		summary.Applications = []domain.Application{}
	}
	if srvErr != nil || summary.Servers == nil {
		summary.Servers = []domain.Server{}
	}
	if teamErr != nil || summary.Teams == nil {
		summary.Teams = []domain.Team{}
	}

	l.metrics.Loaded(time.Since(start), summary.Failed)
	return summary
}
