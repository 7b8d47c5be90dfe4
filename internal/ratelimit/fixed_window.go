// Package ratelimit bounds outbound send throughput per transport and
// blunts automated abuse of the public tracking surface.
package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow is an in-memory fixed-window counter keyed by an arbitrary
// string (transport id, token). The counter resets when the clock
// crosses into a new 60-second window. Safe for concurrent callers; the
// check-and-increment is atomic per key.
type FixedWindow struct {
	mu   sync.Mutex
	keys map[string]*window
	now  func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewFixedWindow creates an empty limiter using the wall clock.
func NewFixedWindow() *FixedWindow {
	return &FixedWindow{
		keys: make(map[string]*window),
		now:  time.Now,
	}
}

// NewFixedWindowWithClock creates a limiter with an injected clock.
func NewFixedWindowWithClock(now func() time.Time) *FixedWindow {
	return &FixedWindow{
		keys: make(map[string]*window),
		now:  now,
	}
}

// TryAcquire increments the counter for key and reports whether the
// post-increment count is within maxPerMinute. A non-positive limit
// always denies.
func (l *FixedWindow) TryAcquire(key string, maxPerMinute int) bool {
	if maxPerMinute <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.keys[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		w = &window{start: now}
		l.keys[key] = w
	}
	w.count++
	return w.count <= maxPerMinute
}

// Usage returns the current count for key within its window. Intended
// for diagnostics.
func (l *FixedWindow) Usage(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.keys[key]
	if !ok || l.now().Sub(w.start) >= time.Minute {
		return 0
	}
	return w.count
}
