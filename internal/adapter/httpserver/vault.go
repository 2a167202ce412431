package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/deployscloud/internal/domain"
	"github.com/pscheid92/deployscloud/internal/platform/crypto"
)

// Session keys
const (
	sessionName          = "deployscloud-session"
	sessionKeyToken      = domain.CredentialKey
	sessionKeyMethod     = "auth_method"
	sessionKeyProfile    = "profile"
	sessionKeySessionID  = "sid"
	sessionKeyOAuthState = "oauth_state"
)

// tokenVault persists the one StoredCredential of a browser session.
type tokenVault interface {
	Load(c echo.Context) (*domain.StoredCredential, error)
	// Save starts a fresh session so a pre-login session id cannot be reused.
	Save(c echo.Context, cred domain.StoredCredential) error
	Clear(c echo.Context) error
}

func newSessionStore(secret string, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxLength(8192)
	return store
}

// regenerateSession expires the current cookie and returns a new, empty session.
func regenerateSession(c echo.Context, store sessions.Store) (*sessions.Session, error) {
	old, err := store.Get(c.Request(), sessionName)
	if err == nil {
		old.Options.MaxAge = -1
		if err := old.Save(c.Request(), c.Response().Writer); err != nil {
			return nil, fmt.Errorf("failed to invalidate old session: %w", err)
		}
	}

	session, err := store.New(c.Request(), sessionName)
	if err != nil && session == nil {
		return nil, fmt.Errorf("failed to create new session: %w", err)
	}
	// New reports decode errors for the stale cookie; the session is still usable.
	session.Values = map[any]any{}
	session.IsNew = true
	return session, nil
}

func expireSession(c echo.Context, store sessions.Store) error {
	session, err := store.Get(c.Request(), sessionName)
	if err != nil && session == nil {
		return nil
	}
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}
	return nil
}

// cookieVault keeps the token inside the signed session cookie, sealed with
// AES-GCM when a key is configured.
type cookieVault struct {
	store  sessions.Store
	sealer crypto.Sealer
}

func newCookieVault(store sessions.Store, sealer crypto.Sealer) *cookieVault {
	return &cookieVault{store: store, sealer: sealer}
}

func (v *cookieVault) Load(c echo.Context) (*domain.StoredCredential, error) {
	session, err := v.store.Get(c.Request(), sessionName)
	if err != nil {
		return nil, nil
	}
	sealed, ok := session.Values[sessionKeyToken].(string)
	if !ok || sealed == "" {
		return nil, nil
	}

	token, err := v.sealer.Open(sessionKeyToken, sealed)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Discarding unreadable session token", "error", err)
		return nil, nil
	}

	cred := &domain.StoredCredential{Token: token}
	if method, ok := session.Values[sessionKeyMethod].(string); ok {
		cred.Method = domain.AuthMethod(method)
	}
	if raw, ok := session.Values[sessionKeyProfile].(string); ok && raw != "" {
		var profile domain.User
		if err := json.Unmarshal([]byte(raw), &profile); err == nil {
			cred.Profile = &profile
		}
	}
	return cred, nil
}

func (v *cookieVault) Save(c echo.Context, cred domain.StoredCredential) error {
	sealed, err := v.sealer.Seal(sessionKeyToken, cred.Token)
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}

	session, err := regenerateSession(c, v.store)
	if err != nil {
		return err
	}
	session.Values[sessionKeyToken] = sealed
	session.Values[sessionKeyMethod] = string(cred.Method)
	if cred.Profile != nil {
		raw, err := json.Marshal(cred.Profile)
		if err != nil {
			return fmt.Errorf("failed to encode profile: %w", err)
		}
		session.Values[sessionKeyProfile] = string(raw)
	}

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (v *cookieVault) Clear(c echo.Context) error {
	return expireSession(c, v.store)
}

// redisVault keeps credentials in Redis; the cookie only carries a random
// session id.
type redisVault struct {
	store sessions.Store
	creds domain.CredentialStore
	ttl   time.Duration
}

func newRedisVault(store sessions.Store, creds domain.CredentialStore, ttl time.Duration) *redisVault {
	return &redisVault{store: store, creds: creds, ttl: ttl}
}

func (v *redisVault) sessionID(c echo.Context) string {
	session, err := v.store.Get(c.Request(), sessionName)
	if err != nil {
		return ""
	}
	sid, _ := session.Values[sessionKeySessionID].(string)
	return sid
}

func (v *redisVault) Load(c echo.Context) (*domain.StoredCredential, error) {
	sid := v.sessionID(c)
	if sid == "" {
		return nil, nil
	}

	cred, err := v.creds.Get(c.Request().Context(), sid)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return cred, nil
}

func (v *redisVault) Save(c echo.Context, cred domain.StoredCredential) error {
	ctx := c.Request().Context()
	if old := v.sessionID(c); old != "" {
		v.delete(ctx, old)
	}

	sid := uuid.NewString()
	if err := v.creds.Put(ctx, sid, cred, v.ttl); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	session, err := regenerateSession(c, v.store)
	if err != nil {
		return err
	}
	session.Values[sessionKeySessionID] = sid
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (v *redisVault) Clear(c echo.Context) error {
	if sid := v.sessionID(c); sid != "" {
		v.delete(c.Request().Context(), sid)
	}
	return expireSession(c, v.store)
}

func (v *redisVault) delete(ctx context.Context, sid string) {
	if err := v.creds.Delete(ctx, sid); err != nil {
		slog.WarnContext(ctx, "Failed to delete stored credential", "error", err)
	}
}
