package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RPS   float64
	Burst int
	// Idle clients are forgotten after this long.
	TTL time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles each client IP with its own token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   RateLimiterConfig
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		config:   config,
	}
}

func (rl *RateLimiter) limiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.config.RPS), rl.config.Burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Cleanup drops visitors idle for longer than the TTL.
func (rl *RateLimiter) Cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.config.TTL {
			delete(rl.visitors, ip)
		}
	}
}

// RateLimit rejects requests over the per-IP budget with 429. The visitor
// table is swept on every request that finds it stale.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	var lastSweep time.Time
	var sweepMu sync.Mutex

	return func(c *gin.Context) {
		now := time.Now()

		sweepMu.Lock()
		if now.Sub(lastSweep) > rl.config.TTL {
			lastSweep = now
			sweepMu.Unlock()
			rl.Cleanup(now)
		} else {
			sweepMu.Unlock()
		}

		if !rl.limiter(c.ClientIP(), now).Allow() {
			c.Header("Retry-After", "1")
			c.Data(http.StatusTooManyRequests, "text/plain; charset=utf-8", []byte("Too many requests, please try again shortly"))
			c.Abort()
			return
		}
		c.Next()
	}
}
