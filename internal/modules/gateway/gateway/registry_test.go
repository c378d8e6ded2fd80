package gateway

import (
	"testing"
	"time"

	"github.com/voxroom/core/internal/middleware"
)

func activeConn(t *testing.T, r *Registry, connID, identityID string) *Connection {
	t.Helper()
	conn := NewConnection(connID)
	if err := conn.BeginAuth(); err != nil {
		t.Fatalf("begin auth: %v", err)
	}
	if _, err := r.Register(conn, &middleware.Identity{ID: identityID, Name: identityID}); err != nil {
		t.Fatalf("register %s: %v", connID, err)
	}
	return conn
}

func TestRegisterStateMachine(t *testing.T) {
	r := NewRegistry()

	conn := NewConnection("c1")
	if conn.State != StateConnecting {
		t.Fatalf("initial state = %s, want connecting", conn.State)
	}

	// Registering before authentication started must fail.
	if _, err := r.Register(conn, &middleware.Identity{ID: "u1"}); err != ErrInvalidTransition {
		t.Fatalf("register without auth = %v, want ErrInvalidTransition", err)
	}

	if err := conn.BeginAuth(); err != nil {
		t.Fatalf("begin auth: %v", err)
	}
	if err := conn.BeginAuth(); err != ErrInvalidTransition {
		t.Fatalf("double begin auth = %v, want ErrInvalidTransition", err)
	}

	fanout, err := r.Register(conn, &middleware.Identity{ID: "u1", Name: "U1", Role: "user"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if fanout != 1 {
		t.Fatalf("fanout = %d, want 1", fanout)
	}
	if conn.State != StateActive {
		t.Fatalf("state = %s, want active", conn.State)
	}
}

func TestRegisterDuplicateID(t *testing.T) {
	r := NewRegistry()
	activeConn(t, r, "c1", "u1")

	dup := NewConnection("c1")
	_ = dup.BeginAuth()
	if _, err := r.Register(dup, &middleware.Identity{ID: "u1"}); err != ErrDuplicateRegistration {
		t.Fatalf("duplicate register = %v, want ErrDuplicateRegistration", err)
	}
}

func TestFanOutAcrossConnections(t *testing.T) {
	r := NewRegistry()
	activeConn(t, r, "c1", "u1")

	conn2 := NewConnection("c2")
	_ = conn2.BeginAuth()
	fanout, err := r.Register(conn2, &middleware.Identity{ID: "u1"})
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if fanout != 2 {
		t.Fatalf("fanout = %d, want 2", fanout)
	}

	last, _, _ := r.Deregister("c1")
	if last {
		t.Fatal("first deregister reported last connection")
	}
	last, _, identityID := r.Deregister("c2")
	if !last || identityID != "u1" {
		t.Fatalf("second deregister = (last=%v, identity=%s), want (true, u1)", last, identityID)
	}
	if r.Count() != 0 {
		t.Fatalf("count = %d, want 0", r.Count())
	}
}

func TestDeregisterReturnsJoinedRooms(t *testing.T) {
	r := NewRegistry()
	activeConn(t, r, "c1", "u1")

	_ = r.MarkJoined("c1", "r1")
	_ = r.MarkJoined("c1", "r2")
	_ = r.MarkLeft("c1", "r2")

	if !r.InRoom("c1", "r1") || r.InRoom("c1", "r2") {
		t.Fatal("room membership tracking is wrong")
	}

	_, rooms, _ := r.Deregister("c1")
	if len(rooms) != 1 || rooms[0] != "r1" {
		t.Fatalf("rooms = %v, want [r1]", rooms)
	}

	// Second deregister of the same id finds nothing.
	last, rooms, identityID := r.Deregister("c1")
	if last || rooms != nil || identityID != "" {
		t.Fatalf("repeat deregister = (%v, %v, %q), want zero values", last, rooms, identityID)
	}
}

func TestStaleSelection(t *testing.T) {
	r := NewRegistry()
	fresh := activeConn(t, r, "fresh", "u1")
	silent := activeConn(t, r, "silent", "u2")

	silent.LastHeartbeat = time.Now().Add(-130 * time.Second)

	stale := r.Stale(120*time.Second, 0)
	if len(stale) != 1 || stale[0] != "silent" {
		t.Fatalf("stale = %v, want [silent]", stale)
	}
	if silent.State != StateClosing {
		t.Fatalf("stale conn state = %s, want closing", silent.State)
	}

	// Already-closing connections are not picked twice.
	if again := r.Stale(120*time.Second, 0); len(again) != 0 {
		t.Fatalf("second sweep = %v, want empty", again)
	}

	if err := r.Touch("fresh"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if fresh.LastHeartbeat.Before(time.Now().Add(-time.Second)) {
		t.Fatal("touch did not refresh heartbeat")
	}
}

func TestTouchUnknownConnection(t *testing.T) {
	r := NewRegistry()
	if err := r.Touch("ghost"); err != ErrConnectionNotFound {
		t.Fatalf("touch ghost = %v, want ErrConnectionNotFound", err)
	}
}
