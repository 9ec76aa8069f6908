package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	domaincheckout "vendibook/internal/domain/checkout"
)

const sessionPrefix = "checkout:session:"

// SessionStore keeps checkout sessions as JSON values with a TTL that is
// refreshed on every write. An expired session reads as not found.
type SessionStore struct {
	client goRedis.UniversalClient
	ttl    time.Duration
}

func NewSessionStore(client goRedis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, id domaincheckout.SessionID) (*domaincheckout.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goRedis.Nil) {
			return nil, domaincheckout.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis: get session: %w", err)
	}
	var session domaincheckout.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("redis: decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) Put(ctx context.Context, session *domaincheckout.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: put session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id domaincheckout.SessionID) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func sessionKey(id domaincheckout.SessionID) string {
	return sessionPrefix + string(id)
}

var _ domaincheckout.SessionStore = (*SessionStore)(nil)
