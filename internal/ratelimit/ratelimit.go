// Package ratelimit throttles per-task-type throughput inside a single
// worker process. Grounded on the teacher's pkg/queue/client.go Allow
// method (a Redis HSET token-bucket driven by a Lua script shared
// across workers); reimplemented as an in-process limiter per
// golang.org/x/time/rate, since dsq's worker fleet has no shared-bucket
// requirement the spec names and a Lua round trip would add latency to
// every pop with nothing to show for it.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter holds one token-bucket rate.Limiter per task name, created
// lazily on first use with the given rate/burst.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// New constructs a Limiter. Every task name allowed through it shares
// the same rps/burst configuration, applied independently per name.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Allow reports whether a task of the given name may proceed right
// now, consuming one token from its bucket if so.
func (l *Limiter) Allow(taskName string) bool {
	return l.limiterFor(taskName).Allow()
}

func (l *Limiter) limiterFor(taskName string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[taskName]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[taskName] = lim
	}
	return lim
}
