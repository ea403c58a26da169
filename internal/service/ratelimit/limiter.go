package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"PriceCast/pkg/clock"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// idleAfter is how long a full bucket must sit unused before it is dropped.
const idleAfter = 10 * time.Minute

// Limiter is a per-key token bucket.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	clock      clock.Clock
	lastSweep  time.Time
}

// New creates a limiter holding capacity tokens per key, refilled at refillPerSec.
func New(capacity, refillPerSec float64, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		clock:      clk,
		lastSweep:  clk.Now(),
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= idleAfter {
		l.sweep(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens -= 1
		return true
	}
	return false
}

// sweep drops buckets idle past idleAfter that have refilled to capacity.
// A dropped key starts over with a full bucket, so Allow answers the same.
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.m {
		idle := now.Sub(b.last)
		if idle >= idleAfter && b.tokens+idle.Seconds()*l.refillRate >= l.capacity {
			delete(l.m, key)
		}
	}
	l.lastSweep = now
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// Middleware rejects requests with 429 once the client IP runs out of tokens.
func (l *Limiter) Middleware(log *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if l.Allow(ip) {
				return next(c)
			}
			if log != nil {
				log.Warn("ratelimit rejected", applogger.String("remote", ip), applogger.String("path", c.Path()))
			}
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests, retry shortly"))
		}
	}
}
