package gateway

import (
	"sync"
	"time"
)

// OpType classifies inbound operations for rate limiting.
type OpType string

const (
	OpMessage   OpType = "message"
	OpGift      OpType = "gift"
	OpTyping    OpType = "typing"
	OpHeartbeat OpType = "heartbeat"
	OpJoin      OpType = "join"
)

// Limit is max operations per rolling window.
type Limit struct {
	Max    int
	Window time.Duration
}

// DefaultLimits are the per-connection budgets applied when the config does
// not override them.
func DefaultLimits() map[OpType]Limit {
	return map[OpType]Limit{
		OpMessage:   {Max: 20, Window: 10 * time.Second},
		OpGift:      {Max: 5, Window: 10 * time.Second},
		OpTyping:    {Max: 30, Window: 10 * time.Second},
		OpHeartbeat: {Max: 6, Window: 10 * time.Second},
		OpJoin:      {Max: 10, Window: 10 * time.Second},
	}
}

// Limiter enforces per-connection, per-operation sliding windows. State is
// process-local: each instance polices only the connections it owns, so no
// shared store round trip sits on the hot path.
type Limiter struct {
	mu      sync.Mutex
	limits  map[OpType]Limit
	buckets map[string]map[OpType][]time.Time
	now     func() time.Time
}

func NewLimiter(limits map[OpType]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]map[OpType][]time.Time),
		now:     time.Now,
	}
}

// Check records one attempt and reports whether it is allowed. When denied,
// retryAfter is how long until the oldest counted attempt leaves the window.
// Denied attempts are not recorded, so a client that keeps retrying does not
// push its own recovery further away.
func (l *Limiter) Check(connID string, op OpType) (allowed bool, retryAfter time.Duration) {
	limit, ok := l.limits[op]
	if !ok || limit.Max <= 0 {
		return true, 0
	}

	now := l.now()
	cutoff := now.Add(-limit.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	ops := l.buckets[connID]
	if ops == nil {
		ops = make(map[OpType][]time.Time)
		l.buckets[connID] = ops
	}

	stamps := ops[op]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit.Max {
		ops[op] = kept
		return false, kept[0].Sub(cutoff)
	}

	ops[op] = append(kept, now)
	return true, 0
}

// Clear drops all state for a connection. Called on disconnect so windows
// never outlive the socket they police.
func (l *Limiter) Clear(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, connID)
}
