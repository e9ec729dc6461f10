package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// KeyByIPAndRoute limits each client per route template.
func KeyByIPAndRoute() KeyFunc {
	return func(c *gin.Context) string {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		return "rl:" + route + ":" + ip
	}
}

var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimit applies a fixed-window limit backed by Redis.
// It is a no-op without a client and fails open when Redis errors.
func RateLimit(rdb redis.Scripter, max int, window time.Duration, keyFn KeyFunc, logger *slog.Logger) gin.HandlerFunc {
	if isNilScripter(rdb) || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		key := keyFn(c)
		res, err := incrExpireScript.Run(c.Request.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			if logger != nil && err != nil {
				logger.Warn("rate limit check failed", slog.String("key", key), slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		count, ttlMillis := int(res[0]), res[1]

		resetSec := 0
		if ttlMillis > 0 {
			resetSec = int((time.Duration(ttlMillis)*time.Millisecond + time.Second - 1) / time.Second)
		}
		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "RateLimited",
			})
			return
		}
		c.Next()
	}
}

func isNilScripter(rdb redis.Scripter) bool {
	if rdb == nil {
		return true
	}
	client, ok := rdb.(*redis.Client)
	return ok && client == nil
}
