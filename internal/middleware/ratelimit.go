package middleware

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
)

const rateKeyPrefix = "ratelimit:auth"

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// AuthRateLimit throttles the login endpoints per client IP. With Redis the
// bucket is shared across instances; without it each instance keeps its own
// sliding window.
func AuthRateLimit(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	if rdb == nil {
		return limiter.New(limiter.Config{
			Max:               cfg.AuthRateLimit,
			Expiration:        cfg.AuthRateWindow,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
			LimitReached:      tooManyRequests,
		})
	}
	return redisTokenBucket(cfg.AuthRateLimit, cfg.AuthRateWindow, rdb)
}

// redisTokenBucket refills one token every window/capacity. Redis failures
// let the request through.
func redisTokenBucket(capacity int, window time.Duration, rdb *redis.Client) fiber.Handler {
	if capacity < 1 {
		capacity = 1
	}
	interval := window / time.Duration(capacity)
	ttl := int64(math.Ceil((window * 2).Seconds()))

	return func(c *fiber.Ctx) error {
		key := rateKeyPrefix + ":" + c.IP()
		args := []interface{}{time.Now().UnixMilli(), capacity, interval.Milliseconds(), ttl}

		vals, err := tokenBucketScript.Run(c.UserContext(), rdb, []string{key}, args...).Int64Slice()
		if err != nil || len(vals) != 3 {
			slog.Warn("rate limiter unavailable, allowing request", "key", key, "error", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(capacity))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

		if vals[0] != 1 {
			secs := int(math.Ceil(float64(vals[2]) / 1000.0))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Too many requests, please try again later",
	})
}
