package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/deployscloud/internal/domain"
)

// CredentialStore keeps StoredCredentials server-side so the browser cookie
// only carries an opaque session id.
type CredentialStore struct {
	rdb *goredis.Client
}

var _ domain.CredentialStore = (*CredentialStore)(nil)

func NewCredentialStore(rdb *goredis.Client) *CredentialStore {
	return &CredentialStore{rdb: rdb}
}

func credentialKey(sessionID string) string {
	return "session:" + sessionID + ":" + domain.CredentialKey
}

func (s *CredentialStore) Get(ctx context.Context, sessionID string) (*domain.StoredCredential, error) {
	raw, err := s.rdb.Get(ctx, credentialKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var cred domain.StoredCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	return &cred, nil
}

func (s *CredentialStore) Put(ctx context.Context, sessionID string, cred domain.StoredCredential, ttl time.Duration) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := s.rdb.Set(ctx, credentialKey(sessionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, credentialKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
