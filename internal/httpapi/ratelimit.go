package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"address-validator/pkg/logger"
	"address-validator/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter reports whether one more hit for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter per key shared by all API instances.
type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.Scripter, perMinute int) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: perMinute, window: time.Minute}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return utils.AllowFixedWindow(ctx, l.rdb, "ratelimit:"+key, l.limit, l.window)
}

type RateLimitRecorder interface {
	RateLimited(path string)
}

// RateLimit rejects clients over the limit with 429. Limiter errors let the request through.
func RateLimit(l Limiter, rec RateLimitRecorder, retryAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		path := c.FullPath()
		ok, err := l.Allow(c.Request.Context(), path+"|"+c.ClientIP())
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable", "err", err)
			c.Next()
			return
		}
		if !ok {
			if rec != nil {
				rec.RateLimited(path)
			}
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
