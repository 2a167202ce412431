package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/deployscloud/internal/adapter/cloudflare"
	"github.com/pscheid92/deployscloud/internal/adapter/coolify"
	"github.com/pscheid92/deployscloud/internal/adapter/httpserver"
	"github.com/pscheid92/deployscloud/internal/adapter/metrics"
	"github.com/pscheid92/deployscloud/internal/adapter/redis"
	"github.com/pscheid92/deployscloud/internal/auth"
	"github.com/pscheid92/deployscloud/internal/dashboard"
	"github.com/pscheid92/deployscloud/internal/domain"
	"github.com/pscheid92/deployscloud/internal/platform/config"
	"github.com/pscheid92/deployscloud/internal/platform/logging"
	"github.com/pscheid92/deployscloud/internal/platform/retry"
	"github.com/pscheid92/deployscloud/internal/platform/version"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config, m *metrics.UpstreamMetrics) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// setupAccess returns nil unless Cloudflare Access is enabled. Assertions are
// only verified when a team domain and audience are configured.
func setupAccess(ctx context.Context, cfg *config.Config, clock clockwork.Clock, m *metrics.UpstreamMetrics) *cloudflare.Authenticator {
	if !cfg.CloudflareAccessEnabled {
		return nil
	}
	if cfg.CloudflareTeamDomain == "" {
		slog.Warn("Cloudflare Access enabled without CLOUDFLARE_TEAM_DOMAIN, trusting identity headers unverified")
		return cloudflare.NewAuthenticator(nil)
	}

	keys := cloudflare.NewKeySet(cloudflare.CertsURL(cfg.CloudflareTeamDomain), clock, m)
	warmKeys(ctx, keys, clock)

	return cloudflare.NewAuthenticator(cloudflare.NewVerifier(keys, cfg.CloudflareTeamDomain, cfg.CloudflareAudience, clock))
}

// warmKeys fetches the Access signing keys once at startup. Failure is not
// fatal: the key set refreshes lazily on the first assertion it cannot match.
func warmKeys(ctx context.Context, keys *cloudflare.KeySet, clock clockwork.Clock) {
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Clock:          clock,
	}, keys.Refresh)
	if err != nil {
		slog.Warn("Could not load Cloudflare Access keys at startup", "error", err)
	}
}

// waitForCoolify logs whether the upstream is reachable. The landing page
// works without it, so startup continues either way.
func waitForCoolify(ctx context.Context, api *coolify.Client, clock clockwork.Clock) {
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Info("Coolify not reachable yet", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}, api.Health)
	if err != nil {
		slog.Warn("Coolify is unreachable, dashboard will be unavailable until it recovers", "base_url", api.BaseURL(), "error", err)
		return
	}
	slog.Info("Coolify reachable", "base_url", api.BaseURL())
}

func buildResolver(cfg *config.Config, api domain.CoolifyAPI, access *cloudflare.Authenticator, m *metrics.AuthMetrics) *auth.Resolver {
	var strategies []auth.Strategy
	if access != nil {
		strategies = append(strategies, auth.NewCloudflareStrategy(access, cfg.CoolifyServiceToken))
	}
	strategies = append(strategies, auth.NewStoredTokenStrategy(api))

	resolver := auth.NewResolver(m, strategies...)
	slog.Info("Auth strategies configured", "strategies", resolver.Names())
	return resolver
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	upstreamMetrics := metrics.NewUpstreamMetrics(reg)
	authMetrics := metrics.NewAuthMetrics(reg)

	api := coolify.NewClient(cfg.CoolifyBaseURL, cfg.CoolifyTimeout, coolify.WithMetrics(upstreamMetrics))

	healthChecks := []httpserver.HealthCheck{
		{Name: "coolify", Check: api.Health},
	}

	var credentials domain.CredentialStore
	if cfg.RedisURL != "" {
		redisClient := setupRedis(ctx, cfg, upstreamMetrics)
		defer func() { _ = redisClient.Close() }()

		store := redis.NewCredentialStore(redisClient)
		credentials = store
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: store.Ping})
		slog.Info("Storing Coolify tokens in Redis")
	}

	access := setupAccess(ctx, cfg, clock, upstreamMetrics)

	deps := httpserver.Dependencies{
		Resolver:       buildResolver(cfg, api, access, authMetrics),
		Auth:           auth.NewService(api, authMetrics),
		Dashboard:      dashboard.NewLoader(api, metrics.NewDashboardMetrics(reg)),
		Credentials:    credentials,
		HTTPMetrics:    metrics.NewHTTPMetrics(reg),
		MetricsHandler: metrics.Handler(reg),
		HealthChecks:   healthChecks,
	}
	// avoid a typed-nil interface when Access is disabled
	if access != nil {
		deps.Access = access
	}

	srv, err := httpserver.NewServer(cfg, deps)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		waitForCoolify(gctx, api, clock)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
