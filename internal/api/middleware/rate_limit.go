package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Authenticated callers are keyed by
// user ID, everyone else by client IP.
type RateLimiter struct {
	mutex             sync.Mutex
	limiters          map[string]*clientLimiter
	rate              rate.Limit
	burst             int
	requestsPerMinute int
}

func NewRateLimiter(requestsPerMinute int, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters:          make(map[string]*clientLimiter),
		rate:              rate.Every(time.Minute / time.Duration(max(requestsPerMinute, 1))),
		burst:             burst,
		requestsPerMinute: requestsPerMinute,
	}
}

func (rl *RateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cl, exists := rl.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Cleanup drops limiters idle for longer than limiterIdleTTL.
func (rl *RateLimiter) Cleanup(now time.Time) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

// StartCleanup runs Cleanup every few minutes until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Cleanup(now)
		}
	}
}

// Middleware rejects requests over the limit with 429. A non-positive rate disables limiting.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.requestsPerMinute <= 0 {
			c.Next()
			return
		}
		key := c.GetString(UserIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		now := time.Now()
		limiter := rl.getLimiter(key, now)
		reset := strconv.FormatInt(now.Add(time.Minute).Unix(), 10)
		if !limiter.AllowN(now, 1) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", reset)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"details": fmt.Sprintf("Too many requests. Limit: %d per minute", rl.requestsPerMinute),
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.TokensAt(now))))
		c.Header("X-RateLimit-Reset", reset)
		c.Next()
	}
}
