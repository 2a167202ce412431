package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minProductionSecretLen = 32

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	Port               string `env:"PORT" default:"8080"`
	SessionSecret      string `env:"SESSION_SECRET"`
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
	RedisURL           string `env:"REDIS_URL"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	CoolifyBaseURL      string        `env:"COOLIFY_BASE_URL" default:"http://localhost:8000"`
	CoolifyTimeout      time.Duration `env:"COOLIFY_TIMEOUT" default:"10s"`
	CoolifyServiceToken string        `env:"COOLIFY_SERVICE_TOKEN"`

	CloudflareAccessEnabled bool   `env:"CLOUDFLARE_ACCESS_ENABLED" default:"false"`
	CloudflareTeamDomain    string `env:"CLOUDFLARE_TEAM_DOMAIN"`
	CloudflareAudience      string `env:"CLOUDFLARE_AUDIENCE"`
	CloudflareLogoutURL     string `env:"CLOUDFLARE_LOGOUT_URL" default:"/cdn-cgi/access/logout"`

	GitHubClientID string `env:"GITHUB_CLIENT_ID"`
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// OAuthProviders returns the names of OAuth providers with a configured client ID.
func (c *Config) OAuthProviders() []string {
	var providers []string
	if c.GitHubClientID != "" {
		providers = append(providers, "github")
	}
	if c.GoogleClientID != "" {
		providers = append(providers, "google")
	}
	return providers
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.CoolifyBaseURL = strings.TrimRight(cfg.CoolifyBaseURL, "/")

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if cfg.IsProduction() && len(cfg.SessionSecret) < minProductionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in production", minProductionSecretLen)
	}

	u, err := url.Parse(cfg.CoolifyBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("COOLIFY_BASE_URL must be an absolute http(s) URL, got %q", cfg.CoolifyBaseURL)
	}

	if cfg.CoolifyTimeout <= 0 {
		return errors.New("COOLIFY_TIMEOUT must be positive")
	}

	if (cfg.CloudflareTeamDomain == "") != (cfg.CloudflareAudience == "") {
		return errors.New("CLOUDFLARE_TEAM_DOMAIN and CLOUDFLARE_AUDIENCE must be set together")
	}

	if cfg.TokenEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	return nil
}
