package circuit

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_TripsOnConsecutiveFailures(t *testing.T) {
	config := DefaultConfig()
	config.ConsecutiveFailures = 3
	breaker := New("test", config)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		if err := breaker.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected underlying error, got %v", i+1, err)
		}
	}

	if err := breaker.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen after trip, got %v", err)
	}
	if breaker.State() != "open" {
		t.Errorf("expected open state, got %s", breaker.State())
	}
}

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	breaker := New("test", DefaultConfig())

	for i := 0; i < 50; i++ {
		if err := breaker.Execute(func() error { return nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if breaker.State() != "closed" {
		t.Errorf("expected closed state, got %s", breaker.State())
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	config := Config{
		ConsecutiveFailures: 1,
		FailureRatio:        0.5,
		MinRequests:         1,
		OpenTimeout:         20 * time.Millisecond,
	}
	breaker := New("test", config)

	breaker.Execute(func() error { return errors.New("boom") })
	if breaker.State() != "open" {
		t.Fatalf("expected open state, got %s", breaker.State())
	}

	time.Sleep(30 * time.Millisecond)

	if err := breaker.Execute(func() error { return nil }); err != nil {
		t.Errorf("expected probe call to succeed, got %v", err)
	}
	if breaker.State() != "closed" {
		t.Errorf("expected closed state after recovery, got %s", breaker.State())
	}
}
