package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     interface{}
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func newTestRedisLimiter(mock *mockRedisEvaler, now time.Time) *redisSlidingWindowLimiter {
	return &redisSlidingWindowLimiter{
		client: mock,
		window: time.Hour,
		max:    4,
		prefix: "rl:reset:",
		now:    func() time.Time { return now },
	}
}

func TestRedisRateLimiterCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("nil client returns nil limiter", func(t *testing.T) {
		if l := NewRedisRateLimiter(nil, "reset", time.Hour, 4); l != nil {
			t.Fatalf("expected nil limiter for nil client")
		}
	})

	t.Run("empty key rejected without redis call", func(t *testing.T) {
		mock := &mockRedisEvaler{}
		l := newTestRedisLimiter(mock, now)
		dec, err := l.Check(context.Background(), "   ")
		if err != nil || dec.Allowed {
			t.Fatalf("expected empty key to be rejected, got %+v,%v", dec, err)
		}
		if mock.lastScript != "" {
			t.Fatalf("expected no redis call")
		}
	})

	t.Run("allow passes normalized key and window", func(t *testing.T) {
		mock := &mockRedisEvaler{result: []interface{}{int64(1), now.Add(time.Hour).UnixMilli()}}
		l := newTestRedisLimiter(mock, now)
		dec, err := l.Check(context.Background(), " User@Example.com ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("expected allowed decision")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "rl:reset:user@example.com" {
			t.Fatalf("unexpected key normalization, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 4 {
			t.Fatalf("expected 4 script args, got %+v", mock.lastArgs)
		}
		if mock.lastArgs[0] != now.UnixMilli() || mock.lastArgs[1] != int64(3600000) || mock.lastArgs[2] != 4 {
			t.Fatalf("unexpected script args %+v", mock.lastArgs)
		}
		if mock.lastScript != redisSlidingWindowScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny carries retry after from oldest entry", func(t *testing.T) {
		reset := now.Add(42*time.Minute + 30*time.Second)
		mock := &mockRedisEvaler{result: []interface{}{int64(0), reset.UnixMilli()}}
		l := newTestRedisLimiter(mock, now)
		dec, err := l.Check(context.Background(), "user@example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dec.Allowed {
			t.Fatalf("expected deny")
		}
		if dec.RetryAfter != 42*time.Minute+30*time.Second {
			t.Fatalf("unexpected retry after %v", dec.RetryAfter)
		}
		if !dec.ResetAt.Equal(reset) {
			t.Fatalf("unexpected reset %v", dec.ResetAt)
		}
	})

	t.Run("redis error fails closed", func(t *testing.T) {
		l := newTestRedisLimiter(&mockRedisEvaler{err: errors.New("redis down")}, now)
		_, err := l.Check(context.Background(), "user@example.com")
		if !errors.Is(err, ErrLimiterUnavailable) {
			t.Fatalf("expected ErrLimiterUnavailable, got %v", err)
		}
		if KindOf(err) != KindDependency {
			t.Fatalf("expected dependency kind, got %v", KindOf(err))
		}
	})

	t.Run("malformed response is an error", func(t *testing.T) {
		l := newTestRedisLimiter(&mockRedisEvaler{result: "OK"}, now)
		if _, err := l.Check(context.Background(), "user@example.com"); !errors.Is(err, ErrLimiterUnavailable) {
			t.Fatalf("expected ErrLimiterUnavailable, got %v", err)
		}
	})
}
