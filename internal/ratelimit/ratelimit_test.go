package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/switchboard/internal/logging"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
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

func TestMemoryRejectsAfterMax(t *testing.T) {
	clock := newFakeClock()
	l := NewMemory(10, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(ctx, "+15550001111"), "request %d", i+1)
	}
	assert.False(t, l.Allow(ctx, "+15550001111"), "11th request in window")
	assert.False(t, l.Allow(ctx, "+15550001111"), "rejections do not reset the window")

	// Other identifiers are independent.
	assert.True(t, l.Allow(ctx, "+15550002222"))
}

func TestMemoryWindowRollsOver(t *testing.T) {
	clock := newFakeClock()
	l := NewMemory(2, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "k"))
	assert.True(t, l.Allow(ctx, "k"))
	assert.False(t, l.Allow(ctx, "k"))

	// Exactly at the reset instant the window is still open.
	clock.Advance(time.Minute)
	assert.False(t, l.Allow(ctx, "k"))

	clock.Advance(time.Second)
	assert.True(t, l.Allow(ctx, "k"))
	assert.True(t, l.Allow(ctx, "k"))
	assert.False(t, l.Allow(ctx, "k"))
}

func TestMemorySweep(t *testing.T) {
	clock := newFakeClock()
	l := NewMemory(5, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	l.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	l.Allow(ctx, "b")
	require.Equal(t, 2, l.Len())

	assert.Equal(t, 0, l.Sweep())

	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestMemoryConcurrentAllow(t *testing.T) {
	l := NewMemory(50, time.Hour)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(ctx, "shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Sweep()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemorySchedule(t *testing.T) {
	l := NewMemory(1, time.Millisecond)
	l.Allow(context.Background(), "a")

	c := cron.New()
	id, err := l.Schedule(c, time.Second)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)
}

func TestAllowAll(t *testing.T) {
	clock := newFakeClock()
	l := NewMemory(1, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	assert.True(t, AllowAll(ctx, l, "+1555", "10.0.0.1"))
	// Caller is exhausted; address must not be consumed.
	assert.False(t, AllowAll(ctx, l, "+1555", "10.0.0.2"))
	assert.True(t, AllowAll(ctx, l, "10.0.0.2"))
	assert.True(t, AllowAll(ctx, l, "", ""))
}

func TestRedisFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedis(client, "test:", 1, time.Minute, logging.New(nil, "silent"))
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(context.Background(), fmt.Sprintf("k%d", i)))
	}
}

func TestRedisFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedis(client, "rl:", 3, time.Minute, logging.New(nil, "silent"))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		assert.True(t, l.Allow(ctx, "+1555"), "request %d", i)
	}
	assert.False(t, l.Allow(ctx, "+1555"))
	assert.False(t, l.Allow(ctx, "+1555"))

	// Refusals do not count against the window.
	count, err := mr.Get("rl:+1555")
	require.NoError(t, err)
	assert.Equal(t, "3", count)
	assert.Equal(t, time.Minute, mr.TTL("rl:+1555"))

	assert.True(t, l.Allow(ctx, "+1666"), "keys have separate windows")

	mr.FastForward(61 * time.Second)
	assert.False(t, mr.Exists("rl:+1555"))
	assert.True(t, l.Allow(ctx, "+1555"))
	count, err = mr.Get("rl:+1555")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}
