package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tempohq/tempo/api/internal/model"
)

// tokenBucketScript runs the token bucket atomically in Redis, so all API
// instances share one bucket per key.
// KEYS[1] = bucket key
// ARGV[1] = refill rate (tokens per second)
// ARGV[2] = capacity (max tokens)
// ARGV[3] = current unix timestamp (seconds, fractional)
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = tokens + elapsed * rate
    if tokens > capacity then
        tokens = capacity
    end
    last_refill = now
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 120)

return {allowed, math.floor(tokens)}
`)

// RateLimiter applies a shared token bucket per user (or IP for
// unauthenticated requests), backed by Redis.
type RateLimiter struct {
	client *redis.Client
	rate   int // requests per window
	window time.Duration
	burst  int
	logger *slog.Logger
}

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	Rate   int           // Requests per window (default 100)
	Window time.Duration // Time window (default 1 minute)
	Burst  int           // Max burst (default 20)
}

// NewRateLimiter creates a new rate limiter on the shared Redis client.
func NewRateLimiter(client *redis.Client, cfg RateLimitConfig, logger *slog.Logger) *RateLimiter {
	if cfg.Rate == 0 {
		cfg.Rate = 100
	}
	if cfg.Window == 0 {
		cfg.Window = time.Minute
	}
	if cfg.Burst == 0 {
		cfg.Burst = 20
	}

	return &RateLimiter{
		client: client,
		rate:   cfg.Rate,
		window: cfg.Window,
		burst:  cfg.Burst,
		logger: logger,
	}
}

// Allow consumes one token for the key. Redis failures fail open: limiting
// protects capacity, it must not take requests down with it.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int) {
	capacity := rl.rate + rl.burst
	ratePerSec := float64(rl.rate) / rl.window.Seconds()
	now := float64(time.Now().UnixMicro()) / 1e6

	res, err := tokenBucketScript.Run(ctx, rl.client,
		[]string{"ratelimit:" + key}, ratePerSec, capacity, now).Result()
	if err != nil {
		rl.logger.Warn("rate limiter unavailable, failing open", "error", err)
		return true, capacity
	}

	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		rl.logger.Warn("rate limiter returned malformed result, failing open")
		return true, capacity
	}

	allowedVal, _ := results[0].(int64)
	remainingVal, _ := results[1].(int64)
	return allowedVal == 1, int(remainingVal)
}

// RateLimit returns a middleware that applies rate limiting
func RateLimit(limiter *RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Rate limit key: user ID if authenticated, otherwise IP
			key := GetUserID(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			allowed, remaining := limiter.Allow(r.Context(), key)

			resetTime := time.Now().Add(limiter.window)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.rate))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				retryAfter := int(limiter.window.Seconds() / float64(limiter.rate))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				model.NewRateLimitError(retryAfter).WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
