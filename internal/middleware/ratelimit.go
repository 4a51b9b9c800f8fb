package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitStrategy selects the admission algorithm
type RateLimitStrategy string

const (
	// FixedWindow counts requests per fixed window. Cheap, but allows
	// up to 2x the limit across a window boundary.
	FixedWindow RateLimitStrategy = "fixed_window"

	// SlidingWindow tracks request timestamps in a sorted set. Precise,
	// memory O(limit) per key.
	SlidingWindow RateLimitStrategy = "sliding_window"

	// TokenBucket refills at limit/window tokens per second and allows
	// bursts up to the bucket capacity.
	TokenBucket RateLimitStrategy = "token_bucket"
)

// RateLimitConfig holds configuration for one limiter instance. A
// deployment runs one instance per endpoint class: a loose ceiling for
// general traffic including verification, and a tight one for the
// admin/login surface.
type RateLimitConfig struct {
	// Class namespaces the Redis keys so distinct ceilings don't share
	// counters
	Class string

	Strategy RateLimitStrategy
	Limit    int
	Window   time.Duration

	// KeyFunc generates the admission key; defaults to client IP
	// within the class
	KeyFunc func(*gin.Context) string

	// ErrorHandler runs when the ceiling is exceeded
	ErrorHandler func(*gin.Context)

	// SkipFunc exempts a request from admission entirely
	SkipFunc func(*gin.Context) bool
}

// RateLimiter gates requests using Redis-backed counters
type RateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient *redis.Client, config *RateLimitConfig) *RateLimiter {
	if config.Class == "" {
		config.Class = "general"
	}
	if config.KeyFunc == nil {
		class := config.Class
		config.KeyFunc = func(c *gin.Context) string {
			return fmt.Sprintf("rate:%s:%s", class, c.ClientIP())
		}
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = defaultErrorHandler
	}
	if config.SkipFunc == nil {
		config.SkipFunc = func(c *gin.Context) bool {
			return false
		}
	}

	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware returns the gin middleware applying this ceiling. Redis
// errors fail open so a cache outage does not take the service down
// with it.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.SkipFunc(c) {
			c.Next()
			return
		}

		key := rl.config.KeyFunc(c)

		allowed, remaining, resetTime, err := rl.checkRateLimit(c.Request.Context(), key)
		if err != nil {
			log.Printf("rate limiter error: %v (failing open)", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

		if !allowed {
			retryAfter := resetTime - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))

			rl.config.ErrorHandler(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) checkRateLimit(ctx context.Context, key string) (bool, int, int64, error) {
	switch rl.config.Strategy {
	case SlidingWindow:
		return rl.slidingWindowCheck(ctx, key)
	case TokenBucket:
		return rl.tokenBucketCheck(ctx, key)
	default:
		return rl.fixedWindowCheck(ctx, key)
	}
}

func (rl *RateLimiter) fixedWindowCheck(ctx context.Context, key string) (bool, int, int64, error) {
	now := time.Now()
	windowStart := now.Truncate(rl.config.Window)
	windowKey := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, err
	}

	count := int(incrCmd.Val())
	resetTime := windowStart.Add(rl.config.Window).Unix()

	allowed := count <= rl.config.Limit
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, resetTime, nil
}

func (rl *RateLimiter) slidingWindowCheck(ctx context.Context, key string) (bool, int, int64, error) {
	now := time.Now()
	windowStart := now.Add(-rl.config.Window).UnixNano()
	nowNano := now.UnixNano()

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(nowNano),
		Member: nowNano,
	})
	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, err
	}

	count := int(zcardCmd.Val())
	resetTime := now.Add(rl.config.Window).Unix()

	allowed := count <= rl.config.Limit
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, resetTime, nil
}

func (rl *RateLimiter) tokenBucketCheck(ctx context.Context, key string) (bool, int, int64, error) {
	now := time.Now()

	tokensKey := key + ":tokens"
	lastRefillKey := key + ":last_refill"

	refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()

	pipe := rl.redis.Pipeline()
	getTokensCmd := pipe.Get(ctx, tokensKey)
	getLastRefillCmd := pipe.Get(ctx, lastRefillKey)
	_, _ = pipe.Exec(ctx)

	tokens := float64(rl.config.Limit)
	if getTokensCmd.Err() == nil {
		if val, err := strconv.ParseFloat(getTokensCmd.Val(), 64); err == nil {
			tokens = val
		}
	}

	lastRefill := now.Unix()
	if getLastRefillCmd.Err() == nil {
		if val, err := strconv.ParseInt(getLastRefillCmd.Val(), 10, 64); err == nil {
			lastRefill = val
		}
	}

	elapsed := now.Unix() - lastRefill
	tokens += float64(elapsed) * refillRate
	if tokens > float64(rl.config.Limit) {
		tokens = float64(rl.config.Limit)
	}

	allowed := tokens >= 1.0
	if allowed {
		tokens -= 1.0
	}

	pipe = rl.redis.Pipeline()
	pipe.Set(ctx, tokensKey, fmt.Sprintf("%.2f", tokens), rl.config.Window*2)
	pipe.Set(ctx, lastRefillKey, now.Unix(), rl.config.Window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, err
	}

	resetTime := now.Unix()
	if tokens < 1.0 {
		resetTime += int64((1.0 - tokens) / refillRate)
	}

	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, resetTime, nil
}

func defaultErrorHandler(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"code":    http.StatusTooManyRequests,
		"message": "Rate limit exceeded. Please try again later.",
		"error":   "too_many_requests",
	})
}

// SkipHealthCheck skips rate limiting for health check endpoints
func SkipHealthCheck(c *gin.Context) bool {
	return c.Request.URL.Path == "/health"
}
