package archive

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := newBreaker(2, time.Minute)

	if !b.allow() {
		t.Fatalf("expected allow before failures")
	}

	b.failure()
	if !b.allow() {
		t.Fatalf("expected allow before reaching threshold")
	}

	b.failure()
	if b.allow() {
		t.Fatalf("expected breaker to block after threshold")
	}

	b.success()
	if !b.allow() {
		t.Fatalf("expected allow after success reset")
	}
}

func TestBreakerClosesAfterCooldown(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(1, 30*time.Second)
	b.now = func() time.Time { return now }

	b.failure()
	if b.allow() {
		t.Fatalf("expected breaker open immediately after failure")
	}

	now = now.Add(31 * time.Second)
	if !b.allow() {
		t.Fatalf("expected breaker to close after cooldown")
	}

	// a failed probe reopens it for another full cooldown
	b.failure()
	if b.allow() {
		t.Fatalf("expected breaker to reopen after failed probe")
	}
}
