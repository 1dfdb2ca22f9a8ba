// Package ratelimit throttles sensitive endpoints per client IP with a token
// bucket
package ratelimit

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/metrics"
	"github.com/gravadigital/bienestar-api/internal/response"
)

// idleTTL is how long an unused client bucket is kept
const idleTTL = 15 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewLimiter allows requestsPerMinute sustained with the given burst
func NewLimiter(requestsPerMinute, burst int) *Limiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow consumes a token for key
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Cleanup forgets buckets idle for longer than idleTTL
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleTTL)
	removed := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Middleware rejects requests beyond the limit with 429
func (l *Limiter) Middleware() gin.HandlerFunc {
	log := logger.WithContext("component", "middleware", "middleware", "ratelimit")

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			metrics.IncRateLimited()
			log.Warn("Rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
			c.Header("Retry-After", "60")
			response.TooManyRequestsError(c, "too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
