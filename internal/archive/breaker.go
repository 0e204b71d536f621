package archive

import (
	"sync"
	"time"
)

// breaker stops submissions after consecutive failures of the archive endpoint
// until a cooldown passes.
type breaker struct {
	mu        sync.Mutex
	failures  uint32
	openedAt  time.Time
	threshold uint32
	cooldown  time.Duration
	now       func() time.Time
}

func newBreaker(threshold uint32, cooldown time.Duration) *breaker {
	if threshold == 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	// half-open: the next call probes the endpoint again
	if b.now().Sub(b.openedAt) > b.cooldown {
		b.failures = 0
		return true
	}
	return false
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.openedAt = b.now()
}
