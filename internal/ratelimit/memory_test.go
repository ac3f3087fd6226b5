package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory(cfg Config) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := NewMemory(cfg)
	m.now = clock.Now
	return m, clock
}

func TestMemoryBurstThenLimited(t *testing.T) {
	m, clock := newTestMemory(Config{Rate: 6, Burst: 18, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 18; i++ {
		ok, err := m.Check(ctx, "key")
		require.NoError(t, err)
		require.True(t, ok, "call %d should be allowed", i+1)
	}

	ok, err := m.Check(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok, "19th call should be limited")

	clock.Advance(time.Minute + time.Millisecond)
	for i := 0; i < 6; i++ {
		ok, err := m.Check(ctx, "key")
		require.NoError(t, err)
		assert.True(t, ok, "refilled call %d should be allowed", i+1)
	}
	ok, _ = m.Check(ctx, "key")
	assert.False(t, ok, "only rate tokens refill in one window")
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	m, _ := newTestMemory(Config{Rate: 1, Burst: 1, Window: time.Minute})
	ctx := context.Background()

	ok, _ := m.Check(ctx, "a")
	require.True(t, ok)
	ok, _ = m.Check(ctx, "a")
	require.False(t, ok)

	ok, _ = m.Check(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryDisabledAllowsEverything(t *testing.T) {
	m, _ := newTestMemory(Config{})
	for i := 0; i < 100; i++ {
		ok, err := m.Check(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Zero(t, m.Len())
}

func TestMemorySweep(t *testing.T) {
	m, clock := newTestMemory(Config{Rate: 3, Burst: 30, Window: time.Minute})
	ctx := context.Background()

	_, _ = m.Check(ctx, "old")
	clock.Advance(5 * time.Minute)
	_, _ = m.Check(ctx, "fresh")

	removed := m.Sweep(time.Minute)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.Len())
}

func TestRefillTime(t *testing.T) {
	cfg := Config{Rate: 6, Burst: 18, Window: time.Minute}
	assert.Equal(t, 3*time.Minute, cfg.RefillTime())
	assert.Zero(t, Config{}.RefillTime())
}
