// Package ratelimit provides request budgets keyed by caller. Memory keeps
// token buckets in process; Valkey shares fixed windows across replicas.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Rule allows Burst requests at once, refilled at Rate per second.
type Rule struct {
	Rate  float64
	Burst int
}

// Disabled reports whether the rule imposes no limit.
func (r Rule) Disabled() bool {
	return r.Rate <= 0 || r.Burst <= 0
}

// Limiter decides whether a request identified by key may proceed. When it
// may not, the returned duration says how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (bool, time.Duration, error)
}

// sweepInterval bounds how often Allow scans for idle buckets.
const sweepInterval = time.Minute

// Memory is an in-process token bucket limiter. Buckets idle long enough to
// have refilled completely are dropped, since a fresh bucket is identical.
type Memory struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
	refill time.Duration
}

// NewMemory builds a Memory limiter. A nil clock uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

func (l *Memory) Allow(_ context.Context, key string, rule Rule) (bool, time.Duration, error) {
	if l == nil || rule.Disabled() {
		return true, 0, nil
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = b
	}
	b.refill = rule.refillTime()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(rule.Burst), b.tokens+elapsed*rule.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0, nil
	}
	waitSec := math.Max(0, (1-b.tokens)/rule.Rate)
	return false, time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond, nil
}

// Len reports how many buckets are held.
func (l *Memory) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep must be called with l.mu held.
func (l *Memory) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.last) >= b.refill {
			delete(l.buckets, key)
		}
	}
}

// refillTime is how long an empty bucket takes to fill to Burst.
func (r Rule) refillTime() time.Duration {
	return time.Duration(float64(r.Burst) / r.Rate * float64(time.Second))
}

var _ Limiter = (*Memory)(nil)
