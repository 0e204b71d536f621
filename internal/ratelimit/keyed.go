package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keyed hands out one token bucket per key (client IP, target host, ...).
// Buckets idle for longer than ttl are dropped. A nil *Keyed never limits.
type Keyed struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	entries   map[string]*entry
	lastSweep time.Time
}

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewKeyed returns nil when rps or burst is not positive.
func NewKeyed(rps float64, burst int, ttl time.Duration) *Keyed {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Keyed{
		limit:     rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		entries:   make(map[string]*entry),
		lastSweep: time.Now(),
	}
}

func (k *Keyed) Allow(key string) bool {
	if k == nil {
		return true
	}
	return k.get(key).Allow()
}

// Wait blocks until key may proceed or ctx is done.
func (k *Keyed) Wait(ctx context.Context, key string) error {
	if k == nil {
		return nil
	}
	return k.get(key).Wait(ctx)
}

// Len reports the number of tracked keys.
func (k *Keyed) Len() int {
	if k == nil {
		return 0
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *Keyed) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	if now.Sub(k.lastSweep) > k.ttl {
		for key, e := range k.entries {
			if now.Sub(e.seen) > k.ttl {
				delete(k.entries, key)
			}
		}
		k.lastSweep = now
	}

	e, ok := k.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.seen = now
	return e.limiter
}
