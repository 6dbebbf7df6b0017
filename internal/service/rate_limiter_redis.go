package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// El set ordenado guarda un miembro por solicitud aceptada con score en ms.
// Devuelve {allowed, reset_ms}; reset_ms es cuando sale de la ventana la
// solicitud mas vieja.
const redisSlidingWindowScript = `
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now_ms - window_ms)
local count = redis.call("ZCARD", key)
local allowed = 0
if count < limit then
  redis.call("ZADD", key, now_ms, ARGV[4])
  allowed = 1
end
redis.call("PEXPIRE", key, window_ms)

local reset_ms = now_ms + window_ms
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
if oldest and oldest[2] then
  reset_ms = tonumber(oldest[2]) + window_ms
end
return {allowed, reset_ms}
`

type redisSlidingWindowLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
	now    func() time.Time
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisRateLimiter crea un limitador compartido entre instancias. flow
// separa los contadores de cada flujo.
func NewRedisRateLimiter(client *redis.Client, flow string, window time.Duration, max int) RateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Hour
	}
	if max <= 0 {
		max = 1
	}
	return &redisSlidingWindowLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "rl:" + flow + ":",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *redisSlidingWindowLimiter) Check(ctx context.Context, key string) (RateDecision, error) {
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	now := l.now()
	if normalizedKey == "" {
		return RateDecision{Allowed: false, RetryAfter: l.window, ResetAt: now.Add(l.window)}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	nowMS := now.UnixMilli()
	raw, err := l.client.Eval(ctx, redisSlidingWindowScript,
		[]string{l.prefix + normalizedKey},
		nowMS,
		l.window.Milliseconds(),
		l.max,
		fmt.Sprintf("%d-%s", nowMS, uuid.NewString()),
	).Result()
	if err != nil {
		return RateDecision{}, fmt.Errorf("%w: %w", ErrLimiterUnavailable, err)
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return RateDecision{}, fmt.Errorf("%w: unexpected script response %T", ErrLimiterUnavailable, raw)
	}
	allowed, err := parseRedisInt64(values[0])
	if err != nil {
		return RateDecision{}, fmt.Errorf("%w: %w", ErrLimiterUnavailable, err)
	}
	resetMS, err := parseRedisInt64(values[1])
	if err != nil {
		return RateDecision{}, fmt.Errorf("%w: %w", ErrLimiterUnavailable, err)
	}

	resetAt := time.UnixMilli(resetMS).UTC()
	if allowed == 1 {
		return RateDecision{Allowed: true, ResetAt: resetAt}, nil
	}
	retry := resetAt.Sub(now)
	if retry <= 0 {
		retry = time.Millisecond
	}
	return RateDecision{Allowed: false, RetryAfter: retry, ResetAt: resetAt}, nil
}

func parseRedisInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("redis response overflows int64")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected redis response type %T", v)
	}
}
