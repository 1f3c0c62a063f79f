package web

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map between cleanups
const maxTrackedClients = 10000

// PostRateLimiter throttles form submissions per client IP
type PostRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewPostRateLimiter creates a limiter allowing perSecond posts with the given burst
func NewPostRateLimiter(perSecond float64, burst int) *PostRateLimiter {
	return &PostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

// getLimiter returns the limiter for a client key
func (rl *PostRateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Cleanup drops all limiters once too many clients are tracked
func (rl *PostRateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > maxTrackedClients {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// Middleware rejects POST requests above the allowed rate; other methods pass through
func (rl *PostRateLimiter) Middleware(s *WebServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if !rl.getLimiter(c.ClientIP()).Allow() {
			log.Printf("[WEB]: rate limit exceeded: %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())
			s.renderError(c, http.StatusTooManyRequests, "Too many requests", "post rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
