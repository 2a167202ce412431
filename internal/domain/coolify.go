package domain

import "context"

type Team struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	PersonalTeam bool   `json:"personal_team"`
}

type Application struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	FQDN        string `json:"fqdn,omitempty"`
	Status      string `json:"status,omitempty"`
}

type Server struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IP          string `json:"ip"`
	Port        int    `json:"port,omitempty"`
	User        string `json:"user,omitempty"`
	Reachable   bool   `json:"is_reachable"`
	Usable      bool   `json:"is_usable"`
}

// LoginUser is the profile Coolify returns alongside a login token.
type LoginUser struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	TeamID int    `json:"team_id"`
}

type LoginResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token,omitempty"`
	User    *LoginUser `json:"user,omitempty"`
	Message string     `json:"message,omitempty"`
}

// CoolifyAPI is the slice of the Coolify REST API this service consumes.
// Authenticated calls take the bearer token explicitly.
type CoolifyAPI interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ExchangeOAuthCode(ctx context.Context, code, state string) (*LoginResponse, error)
	OAuthURL(provider, state string) string
	CurrentTeam(ctx context.Context, token string) (*Team, error)
	Teams(ctx context.Context, token string) ([]Team, error)
	Applications(ctx context.Context, token string) ([]Application, error)
	Servers(ctx context.Context, token string) ([]Server, error)
	Health(ctx context.Context) error
	BaseURL() string
}
