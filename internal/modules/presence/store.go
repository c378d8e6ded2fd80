package presence

import (
	"context"
	"sync"
	"time"

	pkgredis "github.com/voxroom/core/internal/pkg/redis"
)

// Store is the authoritative per-room presence set, shared across instances.
// Entries carry a refreshing TTL so a crashed instance cannot leave ghosts
// behind forever.
type Store interface {
	Add(ctx context.Context, roomID, identityID string) error
	Remove(ctx context.Context, roomID, identityID string) error
	Refresh(ctx context.Context, roomID string) error
	Count(ctx context.Context, roomID string) (int64, error)
	Members(ctx context.Context, roomID string) ([]string, error)
}

const presenceKeyPrefix = "vox:presence:"

// RedisStore backs presence sets with Redis sets.
type RedisStore struct {
	rc  *pkgredis.Client
	ttl time.Duration
}

func NewRedisStore(rc *pkgredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rc: rc, ttl: ttl}
}

func key(roomID string) string { return presenceKeyPrefix + roomID }

func (s *RedisStore) Add(ctx context.Context, roomID, identityID string) error {
	return s.rc.SAdd(ctx, key(roomID), s.ttl, identityID)
}

func (s *RedisStore) Remove(ctx context.Context, roomID, identityID string) error {
	return s.rc.SRem(ctx, key(roomID), identityID)
}

func (s *RedisStore) Refresh(ctx context.Context, roomID string) error {
	return s.rc.Expire(ctx, key(roomID), s.ttl)
}

func (s *RedisStore) Count(ctx context.Context, roomID string) (int64, error) {
	return s.rc.SCard(ctx, key(roomID))
}

func (s *RedisStore) Members(ctx context.Context, roomID string) ([]string, error) {
	return s.rc.SMembers(ctx, key(roomID))
}

// MemoryStore is a process-local Store for tests and single-node setups.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, roomID, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[roomID] == nil {
		s.rooms[roomID] = make(map[string]struct{})
	}
	s.rooms[roomID][identityID] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, roomID, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		delete(room, identityID)
		if len(room) == 0 {
			delete(s.rooms, roomID)
		}
	}
	return nil
}

func (s *MemoryStore) Refresh(_ context.Context, _ string) error { return nil }

func (s *MemoryStore) Count(_ context.Context, roomID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rooms[roomID])), nil
}

func (s *MemoryStore) Members(_ context.Context, roomID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms[roomID]))
	for id := range s.rooms[roomID] {
		out = append(out, id)
	}
	return out, nil
}
