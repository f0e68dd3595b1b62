package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window limiter keyed by caller
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window per key.
// Call Stop to end its cleanup goroutine.
func NewRateLimiter(limit int, per time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  per,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.clients {
				if now.Sub(w.lastReset) > rl.window*2 {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow consumes one token for key and reports whether the request may proceed,
// together with the tokens left in the current window
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.clients[key]
	if !exists || now.Sub(w.lastReset) >= rl.window {
		rl.clients[key] = &window{tokens: rl.limit - 1, lastReset: now}
		return true, rl.limit - 1
	}
	if w.tokens > 0 {
		w.tokens--
		return true, w.tokens
	}
	return false, 0
}

// ActorOrIPKey keys authenticated requests by actor and anonymous ones by client IP
func ActorOrIPKey(c *gin.Context) string {
	if actor, ok := GetActor(c); ok {
		return "actor:" + actor.ID.String()
	}
	return "ip:" + c.ClientIP()
}

// RateLimit returns a rate limiting middleware using keyFunc to identify callers
func RateLimit(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = ActorOrIPKey
	}
	limit := strconv.Itoa(limiter.limit)
	return func(c *gin.Context) {
		allowed, remaining := limiter.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
