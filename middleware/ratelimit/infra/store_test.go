package infra

import (
	"context"
	"testing"
	"time"

	"soundboard-gateway/middleware/ratelimit/domain"
)

func TestStore_SameHostReturnsSameLimiter(t *testing.T) {
	s := NewStore(10, 1)

	l1 := s.Limiter("www.example.com")
	l2 := s.Limiter("WWW.EXAMPLE.COM")
	if l1 != l2 {
		t.Fatalf("expected same limiter for same host regardless of case")
	}
	if s.Get(domain.Key("www.example.com")) != domain.Limiter(l1) {
		t.Fatalf("expected Get to share the host limiter")
	}
}

func TestStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewStore(0.02, 1)

	lim := s.Get(domain.Key("h"))
	if !lim.Allow() {
		t.Fatalf("expected first Allow to be true")
	}
	if lim.Allow() {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
}

func TestStore_ZeroRPSDisablesThrottle(t *testing.T) {
	s := NewStore(0, 0)
	lim := s.Limiter("h")
	for i := 0; i < 100; i++ {
		if !lim.Allow() {
			t.Fatalf("expected unlimited limiter, rejected at %d", i)
		}
	}
}

func TestStore_WaitHonorsContext(t *testing.T) {
	s := NewStore(0.001, 1)
	if err := s.Wait(context.Background(), "h"); err != nil {
		t.Fatalf("expected first Wait to pass, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx, "h"); err == nil {
		t.Fatalf("expected second Wait to fail before a token is available")
	}
}

func TestStore_CleanupRemovesIdleEntries(t *testing.T) {
	clk := newFakeClock()
	s := NewStore(10, 1, WithIdleTTL(time.Minute), WithCleanupEvery(0))
	s.now = clk.Now

	before := s.Limiter("h")
	clk.Advance(2 * time.Minute)
	s.Cleanup()

	if s.Len() != 0 {
		t.Fatalf("expected idle host to be dropped")
	}
	after := s.Limiter("h")
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}
