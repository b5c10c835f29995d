package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newRateLimiter(rdb, "contact", 5, time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(context.Background(), "203.0.113.7")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("sixth request within the hour should be rejected")
	}

	now = now.Add(time.Hour)
	allowed, err = limiter.Allow(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("new window should allow the request")
	}
}

func TestRateLimiterAllowPerIdentity(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newRateLimiter(rdb, "feedback", 1, time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("first identity should be allowed")
	}

	allowed, err = limiter.Allow(context.Background(), "198.51.100.9")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("a different identity should not share the counter")
	}

	allowed, err = limiter.Allow(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("first identity should now be rejected")
	}
}

func TestRateLimiterOperationsAreIndependent(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_200, 0)
	contact, err := newRateLimiter(rdb, "contact", 1, time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}
	feedback, err := newRateLimiter(rdb, "feedback", 1, time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRateLimiter() error = %v", err)
	}

	if allowed, _ := contact.Allow(context.Background(), "203.0.113.7"); !allowed {
		t.Fatal("contact should be allowed")
	}
	if allowed, _ := feedback.Allow(context.Background(), "203.0.113.7"); !allowed {
		t.Fatal("feedback should not share the contact counter")
	}
	if allowed, _ := contact.Allow(context.Background(), "203.0.113.7"); allowed {
		t.Fatal("contact second request should be rejected")
	}
}

func TestNewRateLimiterValidation(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	if _, err := NewRateLimiter(nil, "contact", 5, time.Hour); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRateLimiter(rdb, " ", 5, time.Hour); err == nil {
		t.Fatal("expected error for empty prefix")
	}
	if _, err := NewRateLimiter(rdb, "contact", 0, time.Hour); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := NewRateLimiter(rdb, "contact", 5, time.Millisecond); err == nil {
		t.Fatal("expected error for sub-second window")
	}
}

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb
}
