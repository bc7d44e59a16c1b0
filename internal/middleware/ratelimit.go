package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/support-tickets/internal/config"
)

// tokenBucketScript takes one token from the bucket stored at KEYS[1].
// ARGV: now_ms, capacity, refill_tokens, refill_interval_ms, ttl_ms.
// Replies {allowed (0|1), tokens_left, wait_ms}.
var tokenBucketScript = redis.NewScript(`
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp  = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if not tokens or not stamp then
	tokens = capacity
	stamp = now
end

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	stamp = stamp + steps * interval
end

local allowed = 0
local wait = 0
if tokens >= 1 then
	allowed = 1
	tokens = tokens - 1
else
	wait = math.max(0, stamp + interval - now)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {allowed, tokens, wait}
`)

// bucket is one token-bucket policy applied to many keys.
type bucket struct {
	rdb      redis.Scripter
	capacity int
	refill   int
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
}

type verdict struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

func newBucket(cfg config.RateLimitConfig, rdb redis.Scripter, now func() time.Time) *bucket {
	b := &bucket{
		rdb:      rdb,
		capacity: max(cfg.Capacity, 1),
		refill:   max(cfg.RefillTokens, 1),
		interval: cfg.RefillInterval,
		ttl:      cfg.TTL,
		now:      now,
	}
	if b.interval < time.Millisecond {
		b.interval = time.Second
	}
	if b.ttl < b.interval {
		b.ttl = b.interval
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

func (b *bucket) take(ctx context.Context, key string) (verdict, error) {
	reply, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(), b.capacity, b.refill,
		b.interval.Milliseconds(), b.ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(reply) != 3 {
		return verdict{}, fmt.Errorf("token bucket: unexpected reply %v", reply)
	}
	return verdict{
		allowed:    reply[0] == 1,
		remaining:  reply[1],
		retryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket returns a Redis-backed per-key rate limiter.  It is a
// pass-through when disabled or when rdb is nil, and lets requests through
// when Redis fails.  Mount it after Auth so "user" key parts resolve to the
// verified subject.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return rateLimit(cfg, newBucket(cfg, rdb, nil), logger)
}

func rateLimit(cfg config.RateLimitConfig, b *bucket, logger *slog.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := buildRateKey(cfg, c)

			v, err := b.take(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "ratelimit: redis unavailable, allowing request", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(b.capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.allowed {
				return next(c)
			}

			secs := int((v.retryAfter + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				logger.InfoContext(ctx, "ratelimit: blocked", "key", key, "retry_after", v.retryAfter)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "Too many requests",
				"retry_after": secs,
			})
		}
	}
}

// buildRateKey joins the configured prefix with the parts named by the key
// strategy.  Unknown strategies use ip, user and route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userID(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
