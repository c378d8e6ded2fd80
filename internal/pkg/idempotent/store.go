package idempotent

import (
	"context"
	"sync"
	"time"

	pkgredis "github.com/voxroom/core/internal/pkg/redis"
)

// Store is the fast-path dedupe check for financial operations. It is an
// optimization only: the durable unique constraint on the gift ledger is the
// source of truth, so a missed marker (expired TTL, crash before Mark) is
// always caught there.
type Store interface {
	// Seen reports whether the key was marked within its TTL.
	Seen(ctx context.Context, key string) (bool, error)
	// Mark records the key after the durable record committed.
	Mark(ctx context.Context, key string) error
}

const keyPrefix = "vox:gift:idem:"

// RedisStore keeps markers in Redis with a bounded TTL.
type RedisStore struct {
	rc  *pkgredis.Client
	ttl time.Duration
}

func NewRedisStore(rc *pkgredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rc: rc, ttl: ttl}
}

func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	return s.rc.Exists(ctx, keyPrefix+key)
}

func (s *RedisStore) Mark(ctx context.Context, key string) error {
	return s.rc.Set(ctx, keyPrefix+key, "1", s.ttl)
}

// MemoryStore is a process-local Store used in tests and single-node setups.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{seen: make(map[string]time.Time), ttl: ttl}
}

func (s *MemoryStore) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.seen[key]
	if !ok {
		return false, nil
	}
	if s.ttl > 0 && time.Since(at) > s.ttl {
		delete(s.seen, key)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Mark(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = time.Now()
	return nil
}
