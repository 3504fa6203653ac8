package tokenstore

import (
	"context"
	"sync"
	"time"

	"github.com/darasa-lms/darasa/core"
)

// Store records revoked JWT IDs.
type Store interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// MemoryStore is a process-local Store, used when redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	if expiresAt.After(now) {
		s.revoked[tokenID] = expiresAt
	}
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.revoked[tokenID]
	return ok && exp.After(s.now()), nil
}

// New returns a redis backed store when an address is configured, and a MemoryStore otherwise.
func New(ctx context.Context, conf core.RedisConfig, logger core.Logger) (Store, func() error) {
	if conf.Address == "" {
		return NewMemoryStore(), func() error { return nil }
	}
	rdb, err := NewRedisClient(ctx, conf)
	if err != nil {
		logger.Warn("redis unavailable, revoked tokens are kept in memory", err)
		return NewMemoryStore(), func() error { return nil }
	}
	store := NewRedisStore(rdb)
	return store, store.Close
}
