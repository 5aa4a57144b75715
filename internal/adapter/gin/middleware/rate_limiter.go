package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-management-api/internal/adapter/gin/response"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// tokenBucket refills at ARGV[1] tokens/s up to ARGV[2] and takes one token.
// Returns 1 when the request is allowed.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

tokens = math.min(capacity, tokens + math.max(0, now - last_refill) * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
redis.call('EXPIRE', key, ttl)
return allowed
`)

// RateLimiter limits requests per client IP and route using a Redis token
// bucket. It fails open when Redis is unavailable.
type RateLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	log    *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter backed by client.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	return &RateLimiter{client: client, config: config, log: log, now: time.Now}
}

// Handler returns the Gin middleware. A nil limiter lets every request through.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:tb:%s:%s", c.FullPath(), c.ClientIP())
		now := float64(rl.now().UnixMilli()) / 1000
		ttl := rl.bucketTTL()

		allowed, err := tokenBucket.Run(c.Request.Context(), rl.client, []string{key},
			rl.config.RequestsPerSecond, rl.config.Burst, now, ttl).Int64()
		if err != nil {
			rl.log.Warn("rate limiter redis error, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if allowed == 0 {
			rl.log.Warn("rate limit exceeded", zap.String("client_ip", c.ClientIP()), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{
				Error:   response.CodeRateLimited,
				Message: "Too many requests, please try again later",
			})
			return
		}

		c.Next()
	}
}

// bucketTTL keeps a bucket at least as long as a full refill takes.
func (rl *RateLimiter) bucketTTL() int {
	if rl.config.RequestsPerSecond <= 0 {
		return 60
	}
	refill := int(float64(rl.config.Burst)/rl.config.RequestsPerSecond) + 1
	return max(refill, 60)
}
