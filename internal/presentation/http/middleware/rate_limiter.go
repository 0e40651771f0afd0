package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/metrics"
)

// RateLimiter is a fixed-window request counter per (client IP, route).
// Buckets live in an LRU so memory stays bounded by MaxBuckets, and a
// periodic sweep drops buckets whose window has elapsed.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    *simplelru.LRU[string, *rateBucket]
	limit      int
	window     time.Duration
	maxBuckets int
	sweepTick  time.Duration
	now        func() time.Time
	metrics    *metrics.Metrics
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

// RateLimiterConfig holds configuration for the rate limiter
type RateLimiterConfig struct {
	Requests      int           // Requests allowed per window
	Window        time.Duration // Fixed window length
	MaxBuckets    int           // Maximum tracked (client, route) pairs
	SweepInterval time.Duration // How often elapsed buckets are removed
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// DefaultRateLimiterConfig returns 60 requests per minute
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Requests:      60,
		Window:        time.Minute,
		MaxBuckets:    10000,
		SweepInterval: time.Minute,
	}
}

// NewRateLimiter creates a new rate limiter. Call Run to start the sweep.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = def.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxBuckets <= 0 {
		cfg.MaxBuckets = def.MaxBuckets
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// only fails for a non-positive size
	buckets, _ := simplelru.NewLRU[string, *rateBucket](cfg.MaxBuckets, nil)

	return &RateLimiter{
		buckets:    buckets,
		limit:      cfg.Requests,
		window:     cfg.Window,
		maxBuckets: cfg.MaxBuckets,
		sweepTick:  cfg.SweepInterval,
		now:        cfg.Now,
		metrics:    cfg.Metrics,
	}
}

// Run sweeps elapsed buckets every SweepInterval until ctx is done
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.sweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(); n > 0 {
				log.Debug().Str("component", "rate_limiter").Int("removed", n).Msg("swept rate limit buckets")
			}
		}
	}
}

// Sweep removes buckets whose window has elapsed and returns how many
func (rl *RateLimiter) Sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for _, key := range rl.buckets.Keys() {
		if b, ok := rl.buckets.Peek(key); ok && !now.Before(b.resetAt) {
			rl.buckets.Remove(key)
			removed++
		}
	}
	return removed
}

// take counts one request against key and reports whether it is allowed
func (rl *RateLimiter) take(key string) (allowed bool, remaining int, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets.Get(key)
	if !ok || !now.Before(b.resetAt) {
		b = &rateBucket{resetAt: now.Add(rl.window)}
		rl.buckets.Add(key, b)
	}
	b.count++

	remaining = rl.limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return b.count <= rl.limit, remaining, b.resetAt
}

// Middleware returns a Gin middleware that applies the limit per client
// IP, route and restaurant
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		allowed, remaining, resetAt := rl.take(c.ClientIP() + " " + bucketPath(c, route))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(math.Ceil(resetAt.Sub(rl.now()).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			rl.metrics.RecordRateLimitRejection(c.Request.Context(), route)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}

		c.Next()
	}
}

// bucketPath is the route pattern with the restaurant slug filled in, so each
// restaurant has its own quota while other path parameters share one
func bucketPath(c *gin.Context, route string) string {
	if slug := c.Param("slug"); slug != "" {
		return strings.Replace(route, ":slug", slug, 1)
	}
	return route
}

// Stats returns current statistics about the rate limiter
func (rl *RateLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"active_buckets":    rl.buckets.Len(),
		"max_buckets":       rl.maxBuckets,
		"limit":             rl.limit,
		"window_ms":         rl.window.Milliseconds(),
		"sweep_interval_ms": rl.sweepTick.Milliseconds(),
	}
}
