package gateway

import (
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	now := time.Now()
	l := NewLimiter(map[OpType]Limit{OpMessage: {Max: 3, Window: 10 * time.Second}})
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if allowed, _ := l.Check("c1", OpMessage); !allowed {
			t.Fatalf("attempt %d denied", i+1)
		}
	}

	allowed, retryAfter := l.Check("c1", OpMessage)
	if allowed {
		t.Fatal("fourth attempt allowed")
	}
	if retryAfter <= 0 || retryAfter > 10*time.Second {
		t.Fatalf("retryAfter = %v, want within (0, 10s]", retryAfter)
	}

	// Sliding forward past the oldest attempt frees one slot.
	now = now.Add(10*time.Second + time.Millisecond)
	if allowed, _ := l.Check("c1", OpMessage); !allowed {
		t.Fatal("attempt after window denied")
	}
}

func TestLimiterDenialsNotCounted(t *testing.T) {
	now := time.Now()
	l := NewLimiter(map[OpType]Limit{OpGift: {Max: 1, Window: 10 * time.Second}})
	l.now = func() time.Time { return now }

	if allowed, _ := l.Check("c1", OpGift); !allowed {
		t.Fatal("first attempt denied")
	}
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		if allowed, _ := l.Check("c1", OpGift); allowed {
			t.Fatalf("attempt inside window allowed")
		}
	}

	// 10s after the only counted attempt the budget recovers, even though the
	// client hammered the limiter meanwhile.
	now = now.Add(5*time.Second + time.Millisecond)
	if allowed, _ := l.Check("c1", OpGift); !allowed {
		t.Fatal("recovery attempt denied")
	}
}

func TestLimiterPerConnectionAndOp(t *testing.T) {
	l := NewLimiter(map[OpType]Limit{
		OpMessage: {Max: 1, Window: 10 * time.Second},
		OpTyping:  {Max: 1, Window: 10 * time.Second},
	})

	if allowed, _ := l.Check("c1", OpMessage); !allowed {
		t.Fatal("c1 message denied")
	}
	if allowed, _ := l.Check("c1", OpTyping); !allowed {
		t.Fatal("c1 typing should have its own budget")
	}
	if allowed, _ := l.Check("c2", OpMessage); !allowed {
		t.Fatal("c2 should have its own budget")
	}
	if allowed, _ := l.Check("c1", OpMessage); allowed {
		t.Fatal("c1 second message allowed")
	}
}

func TestLimiterUnknownOpUnlimited(t *testing.T) {
	l := NewLimiter(map[OpType]Limit{})
	for i := 0; i < 100; i++ {
		if allowed, _ := l.Check("c1", OpHeartbeat); !allowed {
			t.Fatal("unconfigured op denied")
		}
	}
}

func TestLimiterClear(t *testing.T) {
	l := NewLimiter(map[OpType]Limit{OpMessage: {Max: 1, Window: 10 * time.Second}})

	if allowed, _ := l.Check("c1", OpMessage); !allowed {
		t.Fatal("first attempt denied")
	}
	l.Clear("c1")
	if allowed, _ := l.Check("c1", OpMessage); !allowed {
		t.Fatal("attempt after clear denied")
	}
}
