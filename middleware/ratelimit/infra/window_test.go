package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"soundboard-gateway/middleware/ratelimit/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestWindowStore_AdmitsUpToMaxThenRejects(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.DefaultPolicy, WithClock(clk.Now))

	for i := 1; i <= 5; i++ {
		dec := s.CheckAndRecord("10.0.0.2")
		if !dec.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if dec.Used != i || dec.Limit != 5 {
			t.Fatalf("request %d: expected used=%d limit=5, got %+v", i, i, dec)
		}
		clk.Advance(time.Second)
	}

	dec := s.CheckAndRecord("10.0.0.2")
	if dec.Allowed {
		t.Fatalf("expected 6th request to be rejected")
	}
	if dec.Used != 5 || dec.Limit != 5 {
		t.Fatalf("expected used=5 limit=5, got %+v", dec)
	}
	// primeiro instante em t0, agora t0+5s: faltam 595s.
	if dec.RetryAfter != 595*time.Second {
		t.Fatalf("expected RetryAfter=595s, got %s", dec.RetryAfter)
	}
}

func TestWindowStore_RejectionDoesNotRecord(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.Policy{MaxRequests: 2, Window: time.Minute}, WithClock(clk.Now))

	s.CheckAndRecord("k")
	s.CheckAndRecord("k")
	for i := 0; i < 10; i++ {
		if s.CheckAndRecord("k").Allowed {
			t.Fatalf("expected rejection")
		}
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Used != 2 {
		t.Fatalf("expected used=2 after rejections, got %+v", snap)
	}
}

func TestWindowStore_RetryAfterWaitedOutIsAdmitted(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.Policy{MaxRequests: 1, Window: 10 * time.Minute}, WithClock(clk.Now))

	if !s.CheckAndRecord("k").Allowed {
		t.Fatalf("expected first allowed")
	}
	clk.Advance(1500 * time.Millisecond)

	dec := s.CheckAndRecord("k")
	if dec.Allowed {
		t.Fatalf("expected rejection")
	}
	// 600s - 1.5s = 598.5s, arredondado para cima.
	if dec.RetryAfter != 599*time.Second {
		t.Fatalf("expected RetryAfter=599s, got %s", dec.RetryAfter)
	}

	clk.Advance(dec.RetryAfter)
	if !s.CheckAndRecord("k").Allowed {
		t.Fatalf("expected admission after waiting RetryAfter")
	}
}

func TestWindowStore_ExactWindowBoundaryEvicts(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.Policy{MaxRequests: 1, Window: time.Minute}, WithClock(clk.Now))

	s.CheckAndRecord("k")
	clk.Advance(time.Minute - time.Nanosecond)
	dec := s.CheckAndRecord("k")
	if dec.Allowed {
		t.Fatalf("expected rejection just before expiry")
	}
	if dec.RetryAfter != time.Second {
		t.Fatalf("expected RetryAfter floor of 1s, got %s", dec.RetryAfter)
	}

	clk.Advance(time.Nanosecond)
	if !s.CheckAndRecord("k").Allowed {
		t.Fatalf("expected admission exactly at window expiry")
	}
}

func TestWindowStore_DisabledAdmitsWithoutBookkeeping(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.Policy{MaxRequests: 2, Window: time.Minute}, WithClock(clk.Now))

	s.CheckAndRecord("k")
	s.CheckAndRecord("k")
	s.SetEnabled(false)

	for i := 0; i < 5; i++ {
		dec := s.CheckAndRecord("k")
		if !dec.Allowed || dec.Used != 0 || dec.Limit != 2 || dec.RetryAfter != 0 {
			t.Fatalf("expected unconditional admission while disabled, got %+v", dec)
		}
	}

	s.SetEnabled(true)
	dec := s.CheckAndRecord("k")
	if dec.Allowed || dec.Used != 2 {
		t.Fatalf("expected previous timestamps honored after re-enable, got %+v", dec)
	}
}

func TestWindowStore_SnapshotDropsExpiredClients(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.Policy{MaxRequests: 5, Window: time.Minute}, WithClock(clk.Now))

	s.CheckAndRecord("b")
	clk.Advance(30 * time.Second)
	s.CheckAndRecord("a")
	s.CheckAndRecord("a")

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Key != "a" || snap[1].Key != "b" {
		t.Fatalf("expected sorted [a b], got %+v", snap)
	}
	if snap[0].Used != 2 || snap[1].Used != 1 {
		t.Fatalf("unexpected counts: %+v", snap)
	}

	clk.Advance(31 * time.Second)
	snap = s.Snapshot()
	if len(snap) != 1 || snap[0].Key != "a" {
		t.Fatalf("expected only a to remain, got %+v", snap)
	}
}

func TestWindowStore_NotifiesOnAdmitAndToggleOnly(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.Policy{MaxRequests: 1, Window: time.Minute}, WithClock(clk.Now))

	var got []domain.QuotaChange
	cancel := s.Subscribe(func(c domain.QuotaChange) { got = append(got, c) })
	defer cancel()

	s.CheckAndRecord("k")
	s.CheckAndRecord("k") // rejeitada
	s.SetEnabled(false)
	s.SetEnabled(false) // sem mudança

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d (%+v)", len(got), got)
	}
	if got[0].Key != "k" || got[0].Used != 1 || !got[0].Enabled {
		t.Fatalf("unexpected admit notification: %+v", got[0])
	}
	if got[1].Enabled {
		t.Fatalf("expected toggle notification with Enabled=false")
	}
}

func TestWindowStore_ConcurrentAdmissionsNeverExceedMax(t *testing.T) {
	s := NewWindowStore(domain.Policy{MaxRequests: 5, Window: time.Hour})

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.CheckAndRecord("same").Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 5 {
		t.Fatalf("expected exactly 5 admissions, got %d", admitted.Load())
	}
}

func TestWindowStore_JanitorSweepsIdleClients(t *testing.T) {
	clk := newFakeClock()
	s := NewWindowStore(domain.Policy{MaxRequests: 5, Window: time.Minute},
		WithClock(clk.Now), WithSweepEvery(time.Millisecond))

	s.CheckAndRecord("k")
	clk.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.entries)
		s.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected janitor to drop idle client")
}
