// Package ratelimit throttles repetitive output with per-key token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a per-key token bucket. Each key refills at rate tokens per
// second up to burst, and starts full. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	nowFunc func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter with the given rate (tokens/sec) and burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes one token from key's bucket and reports whether one was
// available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}

	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}

// KindStep tags per-step progress lines.
const KindStep = "step"

// Progress throttles progress lines per event kind. Kinds without a
// limiter always pass.
type Progress map[string]*Limiter

// NewProgress returns the default throttles for terminal progress output.
func NewProgress() Progress {
	return Progress{
		KindStep: NewLimiter(4.0, 1), // 4 lines/sec
	}
}

// Allow reports whether a progress line of kind may be printed now.
func (p Progress) Allow(kind string) bool {
	l, ok := p[kind]
	if !ok {
		return true
	}
	return l.Allow(kind)
}
