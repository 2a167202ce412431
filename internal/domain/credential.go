package domain

import (
	"context"
	"time"
)

// CredentialKey is the fixed name the token is stored under.
const CredentialKey = "coolify_token"

// StoredCredential is the one durable piece of client state.
type StoredCredential struct {
	Token   string     `json:"token"`
	Method  AuthMethod `json:"method"`
	Profile *User      `json:"profile,omitempty"`
}

// CredentialStore keeps credentials server-side, keyed by an opaque session id.
type CredentialStore interface {
	Get(ctx context.Context, sessionID string) (*StoredCredential, error)
	Put(ctx context.Context, sessionID string, cred StoredCredential, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}
