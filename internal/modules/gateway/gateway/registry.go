package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/voxroom/core/internal/middleware"
)

// Connection lifecycle states. Transitions only move forward; Closed is
// terminal and a closed connection id is never resurrected.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrDuplicateRegistration = errors.New("connection id already registered")
	ErrConnectionNotFound    = errors.New("connection not registered")
	ErrInvalidTransition     = errors.New("invalid connection state transition")
)

// Connection is one live socket bound to a verified identity. All fields are
// guarded by the owning Registry's mutex after registration.
type Connection struct {
	ID            string
	IdentityID    string
	IdentityName  string
	Role          string
	State         ConnState
	ConnectedAt   time.Time
	LastHeartbeat time.Time

	joinedRooms map[string]struct{}
}

// NewConnection starts a connection in the Connecting state.
func NewConnection(id string) *Connection {
	now := time.Now()
	return &Connection{
		ID:            id,
		State:         StateConnecting,
		ConnectedAt:   now,
		LastHeartbeat: now,
		joinedRooms:   make(map[string]struct{}),
	}
}

// BeginAuth moves Connecting -> Authenticating before credential
// verification runs.
func (c *Connection) BeginAuth() error {
	if c.State != StateConnecting {
		return ErrInvalidTransition
	}
	c.State = StateAuthenticating
	return nil
}

// Registry tracks every live connection on this instance and the identity it
// belongs to. One identity may hold several connections (multiple devices);
// the registry answers how many so callers can decide when an identity goes
// online or offline.
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]*Connection
	byIdentity map[string]map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[string]*Connection),
		byIdentity: make(map[string]map[string]*Connection),
	}
}

// Register binds an authenticated connection to its identity and activates
// it. The returned fan-out count includes the new connection, so 1 means the
// identity just came online on this instance.
func (r *Registry) Register(conn *Connection, ident *middleware.Identity) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn.State != StateAuthenticating {
		return 0, ErrInvalidTransition
	}
	if _, ok := r.conns[conn.ID]; ok {
		return 0, ErrDuplicateRegistration
	}

	conn.IdentityID = ident.ID
	conn.IdentityName = ident.Name
	conn.Role = ident.Role
	conn.State = StateActive
	conn.LastHeartbeat = time.Now()

	r.conns[conn.ID] = conn
	set := r.byIdentity[ident.ID]
	if set == nil {
		set = make(map[string]*Connection)
		r.byIdentity[ident.ID] = set
	}
	set[conn.ID] = conn

	return len(set), nil
}

// Deregister removes a connection and reports whether it was the identity's
// last one on this instance, together with the rooms it had joined so the
// caller can emit the matching leaves. Deregistering an unknown id is a
// no-op: disconnect and reap may race.
func (r *Registry) Deregister(connID string) (last bool, rooms []string, identityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return false, nil, ""
	}
	conn.State = StateClosed
	delete(r.conns, connID)

	rooms = make([]string, 0, len(conn.joinedRooms))
	for room := range conn.joinedRooms {
		rooms = append(rooms, room)
	}

	identityID = conn.IdentityID
	if set := r.byIdentity[identityID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byIdentity, identityID)
			last = true
		}
	}
	return last, rooms, identityID
}

// Touch refreshes the heartbeat clock of an active connection.
func (r *Registry) Touch(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ErrConnectionNotFound
	}
	conn.LastHeartbeat = time.Now()
	return nil
}

// MarkJoined records room membership on the connection.
func (r *Registry) MarkJoined(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ErrConnectionNotFound
	}
	conn.joinedRooms[roomID] = struct{}{}
	return nil
}

// MarkLeft drops room membership from the connection.
func (r *Registry) MarkLeft(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return ErrConnectionNotFound
	}
	delete(conn.joinedRooms, roomID)
	return nil
}

// JoinedRooms lists the rooms the connection currently has joined.
func (r *Registry) JoinedRooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(conn.joinedRooms))
	for room := range conn.joinedRooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// InRoom reports whether the connection has joined the room.
func (r *Registry) InRoom(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := conn.joinedRooms[roomID]
	return joined
}

// Get returns a snapshot of the connection's identity binding.
func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connID]
	return conn, ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Stale returns up to limit connection ids whose last heartbeat is older
// than timeout, marking each Closing so a racing reaper tick does not pick
// the same connection twice.
func (r *Registry) Stale(timeout time.Duration, limit int) []string {
	cutoff := time.Now().Add(-timeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for id, conn := range r.conns {
		if conn.State != StateActive || !conn.LastHeartbeat.Before(cutoff) {
			continue
		}
		conn.State = StateClosing
		out = append(out, id)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
