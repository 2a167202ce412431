package domain

import (
	"strconv"
	"strings"
)

type AuthMethod string

const (
	AuthMethodCloudflare  AuthMethod = "cloudflare"
	AuthMethodToken       AuthMethod = "token"
	AuthMethodCredentials AuthMethod = "credentials"
	AuthMethodOAuth       AuthMethod = "oauth"
)

// User is the signed-in person as far as this service knows. It only lives
// for the duration of a request.
//
// Users identified by Cloudflare Access headers have no Coolify identifier,
// so ID is empty and TeamID is nil.
type User struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Email  string   `json:"email,omitempty"`
	TeamID *int     `json:"team_id,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// TeamLabel renders the team id for display.
func (u User) TeamLabel() string {
	if u.TeamID == nil {
		return "—"
	}
	return strconv.Itoa(*u.TeamID)
}

// DisplayName falls back to the email local part and finally to "User".
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

// Identity is the outcome of a successful auth resolution: who the caller is,
// how they were identified, and which bearer token to present to Coolify.
type Identity struct {
	User   User
	Method AuthMethod
	Token  string
}
