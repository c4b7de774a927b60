package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowWithinBurst(t *testing.T) {
	limiter := NewLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("binance") {
			t.Errorf("request %d should be allowed within burst", i+1)
		}
	}

	if limiter.Allow("binance") {
		t.Error("request beyond burst should be throttled")
	}
}

func TestLimiter_VenuesIndependent(t *testing.T) {
	limiter := NewLimiter(1.0, 1)

	if !limiter.Allow("binance") {
		t.Fatal("first binance request should be allowed")
	}
	if limiter.Allow("binance") {
		t.Error("second binance request should be throttled")
	}
	if !limiter.Allow("kraken") {
		t.Error("kraken bucket should be independent of binance")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.1, 1) // one request per 10s after burst
	limiter.Allow("binance")      // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "binance"); err == nil {
		t.Error("expected context deadline error from Wait")
	}
}

func TestLimiter_SetRPS(t *testing.T) {
	limiter := NewLimiter(1.0, 1)
	limiter.Allow("binance")
	limiter.SetRPS(1000)

	time.Sleep(5 * time.Millisecond)
	if !limiter.Allow("binance") {
		t.Error("raised RPS should refill tokens quickly")
	}
}

func TestLimiter_Stats(t *testing.T) {
	limiter := NewLimiter(2.0, 4)
	limiter.Allow("binance")

	stats := limiter.Stats()
	s, ok := stats["binance"]
	if !ok {
		t.Fatal("expected stats for binance")
	}
	if s.RPS != 2.0 {
		t.Errorf("expected RPS 2.0, got %f", s.RPS)
	}
	if s.Burst != 4 {
		t.Errorf("expected burst 4, got %d", s.Burst)
	}
}
