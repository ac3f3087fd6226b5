package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory keeps one token bucket per key in process memory.
// The bucket for a key is created lazily on its first check.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     Config
	now     func() time.Time
}

// NewMemory creates an in-memory limiter.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Check consumes one token for key and reports whether it was available.
func (m *Memory) Check(_ context.Context, key string) (bool, error) {
	if !m.cfg.Enabled() {
		return true, nil
	}

	now := m.now()

	m.mu.Lock()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(m.cfg.perSecond()), m.cfg.Burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)
	m.mu.Unlock()

	return allowed, nil
}

// Sweep forgets buckets that have not been checked for longer than idle and
// returns how many were removed. A bucket idle that long has refilled anyway
// when idle is at least the time needed to refill Burst tokens.
func (m *Memory) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

var _ Limiter = (*Memory)(nil)
