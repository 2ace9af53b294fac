package middleware

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"villabook/internal/config"
	"villabook/internal/pkg/response"
)

var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RateLimiter is a Redis token bucket keyed by client ip, user and route.
type RateLimiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
	return &RateLimiter{cfg: cfg, rdb: rdb, now: time.Now}
}

func (l *RateLimiter) args(now time.Time) []interface{} {
	ttl := int64(l.cfg.RefillInterval*time.Duration(l.cfg.Capacity)/time.Second) + 1
	return []interface{}{
		now.UnixMilli(),
		l.cfg.Capacity,
		1,
		l.cfg.RefillInterval.Milliseconds(),
		ttl,
	}
}

// Middleware passes everything through when disabled or Redis is unavailable.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	if l == nil || !l.cfg.Enabled || l.rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := rateKey(c)
		vals, err := limiterScript.Run(c.Request.Context(), l.rdb, []string{key}, l.args(l.now())...).Result()
		if err != nil {
			log.Printf("level=warn msg=ratelimit redis error key=%s err=%v", key, err)
			c.Next()
			return
		}

		arr, ok := vals.([]interface{})
		if !ok || len(arr) != 3 {
			log.Printf("level=warn msg=ratelimit unexpected script result key=%s result=%#v", key, vals)
			c.Next()
			return
		}
		allowed := asInt64(arr[0]) == 1
		remaining := asInt64(arr[1])
		retryMs := asInt64(arr[2])

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			secs := int(math.Ceil(float64(retryMs) / 1000.0))
			if secs < 0 {
				secs = 0
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, try again later")
			return
		}

		c.Next()
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func rateKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := "anon"
	if id := c.GetInt64(ctxUserID); id != 0 {
		uid = fmt.Sprintf("%d", id)
	}
	route := c.Request.Method + " " + c.FullPath()
	return strings.Join([]string{"rl", "ip", ip, "user", uid, "route", route}, ":")
}
