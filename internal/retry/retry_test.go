package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		BreakerEnabled: false,
	}
}

func retryAll(error) Classification {
	return Classification{Retryable: true, RecordFailure: true}
}

func retryNone(error) Classification {
	return Classification{Retryable: false, RecordFailure: true}
}

func TestExecuteSucceedsAfterTransientFailures(t *testing.T) {
	exec := NewExecutor(testConfig())

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, retryAll)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteFailsFastOnPermanentError(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 10
	exec := NewExecutor(cfg)

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, retryNone)
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	exec := NewExecutor(testConfig())

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errTemp
	}, retryAll)
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected last error after exhaustion, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteNilClassifierNeverRetries(t *testing.T) {
	exec := NewExecutor(testConfig())

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errors.New("boom")
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt with nil classifier, got %d", attempts)
	}
}

func TestExecuteStopsWhenContextCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.InitialBackoff = 50 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	errTemp := errors.New("temporary")
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := exec.Execute(ctx, "op", func(context.Context) error {
		attempts++
		return errTemp
	}, retryAll)
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected last attempt error after cancellation, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestBackoffDelaysStayWithinJitterBounds(t *testing.T) {
	cfg := Config{
		MaxAttempts:    6,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BreakerEnabled: false,
	}
	exec := NewExecutor(cfg)

	for run := 0; run < 20; run++ {
		schedule := exec.newBackoff()
		expected := cfg.InitialBackoff
		for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
			delay := exec.nextDelay(schedule)

			lo := time.Duration(float64(expected) * 0.85)
			hi := time.Duration(float64(expected) * 1.15)
			if hi > cfg.MaxBackoff {
				hi = cfg.MaxBackoff
			}
			if delay < lo || delay > hi {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, delay, lo, hi)
			}
			if delay > cfg.MaxBackoff {
				t.Fatalf("attempt %d: delay %v exceeds hard cap %v", attempt, delay, cfg.MaxBackoff)
			}

			expected *= 2
			if expected > cfg.MaxBackoff {
				expected = cfg.MaxBackoff
			}
		}
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = 50 * time.Millisecond
	cfg.BreakerHalfOpenMaxCalls = 1
	exec := NewExecutor(cfg)

	errTemp := errors.New("temporary")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, retryNone)
		if !errors.Is(err, errTemp) {
			t.Fatalf("iteration %d: expected failure, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatal("open circuit must not invoke the operation")
		return nil
	}, retryNone)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit error, got %v", err)
	}
}
