package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"devlense/internal/models"
	contextutils "devlense/internal/utils"

	"github.com/redis/go-redis/v9"
)

// SessionStore tracks live sessions so a signed token can be revoked on sign-out.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	// Get returns nil, nil for unknown or expired sessions
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process. Sessions do not survive a restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

// NewMemorySessionStore creates an empty store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*models.Session), now: time.Now}
}

func (s *MemorySessionStore) Save(_ context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "session id is required")
	}
	copied := *session
	s.mu.Lock()
	s.sessions[session.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if session.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// PurgeExpired drops expired sessions and reports how many were removed
func (s *MemorySessionStore) PurgeExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

const redisSessionKeyPrefix = "devlense:session:"

// RedisSessionStore keeps sessions as JSON values that expire with the session.
type RedisSessionStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisSessionStore wraps an existing client
func NewRedisSessionStore(client redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "session id is required")
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return contextutils.WrapError(contextutils.ErrSessionExpired, "session already expired")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return contextutils.WrapError(err, "failed to encode session")
	}
	if err := s.client.Set(ctx, redisSessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to store session: %v", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, redisSessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to load session: %v", err)
	}
	session := &models.Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode session")
	}
	if session.Expired(s.now()) {
		return nil, nil
	}
	return session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisSessionKeyPrefix+id).Err(); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "failed to delete session: %v", err)
	}
	return nil
}
