package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	domaincheckout "vendibook/internal/domain/checkout"
)

type sessionEntry struct {
	data    []byte
	expires time.Time
}

// SessionStore keeps checkout sessions as JSON with a sliding TTL, the same
// shape the redis store uses.
type SessionStore struct {
	mu    sync.Mutex
	items map[domaincheckout.SessionID]sessionEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		items: make(map[domaincheckout.SessionID]sessionEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *SessionStore) Get(ctx context.Context, id domaincheckout.SessionID) (*domaincheckout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, domaincheckout.ErrSessionNotFound
	}
	if s.ttl > 0 && s.now().After(entry.expires) {
		delete(s.items, id)
		return nil, domaincheckout.ErrSessionNotFound
	}
	var session domaincheckout.Session
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) Put(ctx context.Context, session *domaincheckout.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.ID] = sessionEntry{data: data, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id domaincheckout.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

var _ domaincheckout.SessionStore = (*SessionStore)(nil)
