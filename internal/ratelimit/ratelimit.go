// Package ratelimit throttles paste submissions with a per-client sliding
// window of recent attempt timestamps.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter keeps up to `samples` attempt timestamps per client and limits a
// client whose full window spans less than `window`. A nil Limiter, or one
// configured with zero samples or a zero window, allows everything.
type Limiter struct {
	samples int
	window  time.Duration

	mu      sync.Mutex
	history map[string][]time.Time
	now     func() time.Time
}

// New constructs a Limiter allowing at most samples attempts per window.
func New(samples int, window time.Duration) *Limiter {
	return &Limiter{
		samples: samples,
		window:  window,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check records an attempt for key and returns how many whole seconds the
// client must still wait, or 0 if it may proceed. Every call consumes a
// window slot, rejected attempts included: a client that keeps probing while
// limited keeps re-arming its own window. That is intentional.
func (l *Limiter) Check(key string) int {
	if l == nil || l.samples <= 0 || l.window <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hist := l.history[key]
	if len(hist) >= l.samples {
		hist = hist[len(hist)-l.samples+1:]
	}
	hist = append(hist, now)
	l.history[key] = hist

	if len(hist) < l.samples {
		return 0
	}
	if hist[len(hist)-1].Sub(hist[0]) >= l.window {
		return 0
	}

	// The window frees up when the oldest surviving entry ages out; with the
	// oldest already evicted on the next call, that is the second-oldest now.
	second := hist[0]
	if len(hist) > 1 {
		second = hist[1]
	}
	wait := l.window - now.Sub(second)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Size reports how many distinct clients the limiter is tracking.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}
