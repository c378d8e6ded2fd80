package presence

import (
	"context"
	"sync"
	"time"

	"github.com/voxroom/core/internal/pkg/realtime"
	"go.uber.org/zap"
)

// RoomAuthority answers whether an identity may enter a room right now.
type RoomAuthority interface {
	CheckJoin(roomID, userID string) error
}

// Member identifies who is joining a room.
type Member struct {
	ID   string
	Name string
}

// Service is the presence manager: authoritative per-room membership with
// duplicate-join suppression and a process-local count cache for O(1) reads.
type Service struct {
	mu sync.Mutex
	// room -> identity -> connection -> joinedAt
	joins map[string]map[string]map[string]time.Time
	// room -> identity -> last user_joined broadcast
	lastJoin map[string]map[string]time.Time
	counts   map[string]int64

	store     Store
	rooms     RoomAuthority
	bc        realtime.Broadcaster
	logger    *zap.Logger
	dupWindow time.Duration
}

func NewService(store Store, rooms RoomAuthority, bc realtime.Broadcaster, logger *zap.Logger, dupWindow time.Duration) *Service {
	return &Service{
		joins:     make(map[string]map[string]map[string]time.Time),
		lastJoin:  make(map[string]map[string]time.Time),
		counts:    make(map[string]int64),
		store:     store,
		rooms:     rooms,
		bc:        bc,
		logger:    logger,
		dupWindow: dupWindow,
	}
}

// Join admits a connection into a room and returns the room's online count.
// A second connection of the same identity inside the duplicate-join window
// still succeeds but does not re-broadcast user_joined, so client reconnects
// never spam the room with join/leave churn.
func (s *Service) Join(ctx context.Context, roomID string, member Member, connID string) (int64, error) {
	if err := s.rooms.CheckJoin(roomID, member.ID); err != nil {
		return 0, err
	}

	now := time.Now()

	s.mu.Lock()
	if s.joins[roomID] == nil {
		s.joins[roomID] = make(map[string]map[string]time.Time)
	}
	conns := s.joins[roomID][member.ID]
	alreadyPresent := len(conns) > 0
	if conns == nil {
		conns = make(map[string]time.Time)
		s.joins[roomID][member.ID] = conns
	}
	conns[connID] = now

	suppress := alreadyPresent
	if !suppress {
		if last, ok := s.lastJoin[roomID][member.ID]; ok && now.Sub(last) < s.dupWindow {
			suppress = true
		}
	}
	s.mu.Unlock()

	// The shared store is authoritative for cross-instance reads; a transient
	// failure degrades to local-only presence and is logged, not surfaced.
	if err := s.store.Add(ctx, roomID, member.ID); err != nil {
		s.logger.Warn("presence store add failed", zap.String("room", roomID), zap.Error(err))
	}
	online := s.refreshCount(ctx, roomID)

	if !suppress {
		s.mu.Lock()
		if s.lastJoin[roomID] == nil {
			s.lastJoin[roomID] = make(map[string]time.Time)
		}
		s.lastJoin[roomID][member.ID] = now
		s.mu.Unlock()

		s.bc.PublishRoom(realtime.NewRoomEvent(realtime.EventUserJoined, roomID, member.ID, member.Name, map[string]interface{}{
			"online": online,
		}))
	}

	return online, nil
}

// Leave removes a connection from a room. The identity drops out of the
// presence set, and user_left is emitted, only when its last joined
// connection leaves.
func (s *Service) Leave(ctx context.Context, roomID, identityID, connID, reason string) {
	s.mu.Lock()
	conns := s.joins[roomID][identityID]
	if conns == nil {
		s.mu.Unlock()
		return
	}
	if _, ok := conns[connID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(conns, connID)
	lastConnection := len(conns) == 0
	if lastConnection {
		delete(s.joins[roomID], identityID)
		if len(s.joins[roomID]) == 0 {
			delete(s.joins, roomID)
		}
		// lastJoin is kept on purpose: a leave immediately followed by a
		// rejoin inside the window is reconnect churn, and the rejoin must
		// not re-broadcast user_joined.
	}
	s.mu.Unlock()

	if !lastConnection {
		return
	}

	if err := s.store.Remove(ctx, roomID, identityID); err != nil {
		s.logger.Warn("presence store remove failed", zap.String("room", roomID), zap.Error(err))
	}
	online := s.refreshCount(ctx, roomID)

	s.bc.PublishRoom(realtime.NewRoomEvent(realtime.EventUserLeft, roomID, identityID, "", map[string]interface{}{
		"reason": reason,
		"online": online,
	}))
}

// Refresh extends the presence TTL for the rooms a heartbeating connection
// has joined.
func (s *Service) Refresh(ctx context.Context, roomIDs []string) {
	for _, roomID := range roomIDs {
		if err := s.store.Refresh(ctx, roomID); err != nil {
			s.logger.Warn("presence ttl refresh failed", zap.String("room", roomID), zap.Error(err))
		}
	}
}

// OnlineCount is an O(1) read of the local cache. It converges with the
// authoritative store within one heartbeat interval.
func (s *Service) OnlineCount(roomID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[roomID]
}

// OnlineMembers reads the authoritative online set.
func (s *Service) OnlineMembers(ctx context.Context, roomID string) []string {
	members, err := s.store.Members(ctx, roomID)
	if err != nil {
		s.logger.Warn("presence store members failed", zap.String("room", roomID), zap.Error(err))
		return s.localMembers(roomID)
	}
	return members
}

func (s *Service) localMembers(roomID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.joins[roomID]))
	for id := range s.joins[roomID] {
		out = append(out, id)
	}
	return out
}

func (s *Service) refreshCount(ctx context.Context, roomID string) int64 {
	online, err := s.store.Count(ctx, roomID)
	if err != nil {
		s.mu.Lock()
		online = int64(len(s.joins[roomID]))
		s.counts[roomID] = online
		s.mu.Unlock()
		return online
	}
	s.mu.Lock()
	if online == 0 {
		delete(s.counts, roomID)
	} else {
		s.counts[roomID] = online
	}
	s.mu.Unlock()
	return online
}
