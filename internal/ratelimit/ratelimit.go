// Package ratelimit provides fixed-window request limiting keyed by caller
// number or network address.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Limiter decides whether one more request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// AllowAll checks each key in order and stops at the first rejection.
// Empty keys are skipped.
func AllowAll(ctx context.Context, l Limiter, keys ...string) bool {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if !l.Allow(ctx, k) {
			return false
		}
	}
	return true
}

// Clock returns the current time.
type Clock func() time.Time

type bucket struct {
	count   int
	resetAt time.Time
}

// Memory is a process-local fixed window limiter.
type Memory struct {
	max    int
	window time.Duration
	now    Clock

	mu      sync.Mutex
	entries map[string]*bucket
}

// MemoryOption configures a Memory limiter.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, for tests.
func WithClock(c Clock) MemoryOption {
	return func(m *Memory) { m.now = c }
}

// NewMemory creates a limiter allowing max requests per key per window.
func NewMemory(max int, window time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		max:     max,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*bucket),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Allow counts a request for key. The first request opens a window ending
// at now+window; once now passes that point the window restarts.
func (m *Memory) Allow(_ context.Context, key string) bool {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.entries[key]
	if !ok || now.After(w.resetAt) {
		m.entries[key] = &bucket{count: 1, resetAt: now.Add(m.window)}
		return true
	}
	if w.count >= m.max {
		return false
	}
	w.count++
	return true
}

// Sweep evicts expired windows and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, w := range m.entries {
		if now.After(w.resetAt) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Schedule registers Sweep on c to run every interval.
func (m *Memory) Schedule(c *cron.Cron, every time.Duration) (cron.EntryID, error) {
	return c.AddFunc(fmt.Sprintf("@every %s", every), func() { m.Sweep() })
}
