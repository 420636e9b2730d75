// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/utils"
)

const (
	sweepInterval = time.Minute
	clientIdleTTL = 3 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Idle buckets are swept
// while serving requests, so no background goroutine outlives the router.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// NewRateLimiters builds the general and auth limiters from configuration.
func NewRateLimiters(cfg config.RateLimitConfig) (general, auth *RateLimiter) {
	general = NewRateLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	auth = NewRateLimiter(rate.Every(time.Minute/time.Duration(cfg.AuthPerMinute)), cfg.AuthPerMinute)
	return general, auth
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= sweepInterval {
		rl.sweep(now, clientIdleTTL)
		rl.lastSweep = now
	}

	bucket, ok := rl.clients[clientIP]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientIP] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than ttl. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time, ttl time.Duration) {
	for ip, bucket := range rl.clients {
		if now.Sub(bucket.lastSeen) > ttl {
			delete(rl.clients, ip)
		}
	}
}

func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			GetLogger(c).WithField("client_ip", c.ClientIP()).Warn("Rate limit exceeded")
			utils.Fail(c, http.StatusTooManyRequests, "", "")
			return
		}
		c.Next()
	}
}
