package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const cleanupInterval = 1 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimiter tracks per-IP token bucket limiters.
type RateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a per-IP limiter. rps controls the steady-state rate
// (requests per second), burst is the maximum number of tokens that can be
// consumed in a single burst. Visitors unseen for idle are dropped by a
// background sweep that stops when ctx is done.
func NewRateLimiter(ctx context.Context, rps float64, burst int, idle time.Duration) *RateLimiter {
	if idle <= 0 {
		idle = 3 * time.Minute
	}
	rl := &RateLimiter{
		rps:   rate.Limit(rps),
		burst: burst,
		idle:  idle,
		now:   time.Now,
	}
	go rl.cleanupLoop(ctx)
	return rl
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	now := rl.now().UnixNano()
	if val, ok := rl.visitors.Load(ip); ok {
		v := val.(*visitor)
		v.lastSeen.Store(now)
		return v.limiter
	}

	v := &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
	v.lastSeen.Store(now)
	actual, _ := rl.visitors.LoadOrStore(ip, v)
	return actual.(*visitor).limiter
}

// Handler returns the fiber middleware. Rejected requests get 429.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if !rl.getVisitor(ip).Allow() {
			log.Warn().
				Str("request_id", c.GetRespHeader("X-Request-ID")).
				Str("ip", ip).
				Str("path", c.Path()).
				Msg("rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		}
		return c.Next()
	}
}

// Len returns the number of tracked visitors.
func (rl *RateLimiter) Len() int {
	n := 0
	rl.visitors.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// sweep removes visitors not seen since now-idle.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.idle).UnixNano()
	rl.visitors.Range(func(key, value any) bool {
		if value.(*visitor).lastSeen.Load() < cutoff {
			rl.visitors.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep(rl.now())
		}
	}
}
