package domain

import (
	"testing"
	"time"
)

func TestPolicy_WindowMinutes(t *testing.T) {
	if got := DefaultPolicy.WindowMinutes(); got != 10 {
		t.Fatalf("expected 10 minutes, got %d", got)
	}
	p := Policy{MaxRequests: 1, Window: 90 * time.Second}
	if got := p.WindowMinutes(); got != 1 {
		t.Fatalf("expected truncation to 1 minute, got %d", got)
	}
}

func TestDecision_RetryAfterSeconds(t *testing.T) {
	d := Decision{RetryAfter: 42 * time.Second}
	if got := d.RetryAfterSeconds(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := (Decision{Allowed: true}).RetryAfterSeconds(); got != 0 {
		t.Fatalf("expected 0 when allowed, got %d", got)
	}
}
