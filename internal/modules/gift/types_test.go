package gift

import "testing"

func TestSplitThreeWay(t *testing.T) {
	cfg := SplitConfig{ReceiverPercent: 30, OwnerPercent: 30, PlatformPercent: 40}

	sh := split(200, cfg, true, false, false)
	if sh.receiver != 60 || sh.owner != 60 || sh.platform != 80 {
		t.Fatalf("unexpected shares: %+v", sh)
	}
}

func TestSplitRemainderGoesToReceiver(t *testing.T) {
	cfg := SplitConfig{ReceiverPercent: 30, OwnerPercent: 30, PlatformPercent: 40}

	// 101 -> 30/30/40 leaves 1 unassigned; it must land on the receiver.
	sh := split(101, cfg, true, false, false)
	if sh.receiver+sh.owner+sh.platform != 101 {
		t.Fatalf("shares do not sum to total: %+v", sh)
	}
	if sh.receiver != 31 {
		t.Fatalf("remainder not folded into receiver: %+v", sh)
	}
}

func TestSplitNoOwner(t *testing.T) {
	cfg := SplitConfig{ReceiverPercent: 30, OwnerPercent: 30, PlatformPercent: 40}

	sh := split(200, cfg, false, false, false)
	if sh.owner != 0 {
		t.Fatalf("owner share should be zero: %+v", sh)
	}
	if sh.receiver != 120 || sh.platform != 80 {
		t.Fatalf("owner share not folded into receiver: %+v", sh)
	}
}

func TestSplitOwnerIsSender(t *testing.T) {
	cfg := SplitConfig{ReceiverPercent: 30, OwnerPercent: 30, PlatformPercent: 40}

	sh := split(200, cfg, true, false, true)
	if sh.owner != 0 {
		t.Fatalf("owner share should be zero: %+v", sh)
	}
	if sh.platform != 140 || sh.receiver != 60 {
		t.Fatalf("owner share not folded into platform: %+v", sh)
	}
}

func TestSplitOwnerIsReceiver(t *testing.T) {
	cfg := SplitConfig{ReceiverPercent: 30, OwnerPercent: 30, PlatformPercent: 40}

	sh := split(200, cfg, true, true, false)
	if sh.owner != 0 {
		t.Fatalf("owner share should be zero: %+v", sh)
	}
	if sh.receiver != 120 || sh.platform != 80 {
		t.Fatalf("owner share not folded into receiver: %+v", sh)
	}
}

func TestSplitConservation(t *testing.T) {
	cfg := SplitConfig{ReceiverPercent: 30, OwnerPercent: 30, PlatformPercent: 40}

	for total := int64(1); total < 500; total++ {
		sh := split(total, cfg, true, false, false)
		if sum := sh.receiver + sh.owner + sh.platform; sum != total {
			t.Fatalf("total %d split to %d", total, sum)
		}
		if sh.receiver < 0 || sh.owner < 0 || sh.platform < 0 {
			t.Fatalf("negative share for total %d: %+v", total, sh)
		}
	}
}
