package auth

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"github.com/okian/mmo/pkg/metrics"
)

const (
	defaultSessionTTL      = 8 * time.Hour
	defaultSessionCapacity = 10000
)

// Session is an authenticated login.
type Session struct {
	Token     string    `json:"token"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithTTL sets how long a session lives.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *SessionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCapacity bounds the number of live sessions.
func WithCapacity(n int64) SessionOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// SessionStore keeps sessions in a ristretto cache with per-entry TTL.
type SessionStore struct {
	cache    *ristretto.Cache
	ttl      time.Duration
	capacity int64
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(opts ...SessionOption) (*SessionStore, error) {
	s := &SessionStore{ttl: defaultSessionTTL, capacity: defaultSessionCapacity, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * s.capacity,
		MaxCost:     s.capacity,
		BufferItems: 64,
		OnExit: func(v interface{}) {
			if _, ok := v.(Session); ok {
				metrics.DecActiveSessions()
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// TTL returns the session lifetime.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Create starts a session for user.
func (s *SessionStore) Create(user string) (Session, error) {
	now := s.now()
	sess := Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	metrics.IncActiveSessions()
	if !s.cache.SetWithTTL(sess.Token, sess, 1, s.ttl) {
		metrics.DecActiveSessions()
		return Session{}, ErrSessionStore
	}
	// Sets are buffered; wait so the token is visible to the next request.
	s.cache.Wait()
	if _, ok := s.cache.Get(sess.Token); !ok {
		return Session{}, ErrSessionStore
	}
	return sess, nil
}

// Lookup returns the live session for token.
func (s *SessionStore) Lookup(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	v, ok := s.cache.Get(token)
	if !ok {
		return Session{}, ErrNoSession
	}
	sess, ok := v.(Session)
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Revoke ends the session for token. Unknown tokens are ignored.
func (s *SessionStore) Revoke(token string) {
	s.cache.Del(token)
	s.cache.Wait()
}

// Close releases the cache's background goroutines.
func (s *SessionStore) Close() {
	s.cache.Close()
}
