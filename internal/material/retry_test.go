package material

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recordingSleep(delays *[]time.Duration) sleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	attempts := 0

	err := retryWithBackoff(context.Background(), 3, 2*time.Second, 2.0,
		recordingSleep(&delays),
		func(error) bool { return true },
		func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts, got %d", attempts)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("want delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: want %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestRetryWithBackoff_PermanentErrorNotRetried(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	permanent := errors.New("permanent")

	err := retryWithBackoff(context.Background(), 3, 2*time.Second, 2.0,
		recordingSleep(&delays),
		func(error) bool { return false },
		func() error {
			attempts++
			return permanent
		})
	if !errors.Is(err, permanent) {
		t.Fatalf("want permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("want 1 attempt, got %d", attempts)
	}
	if len(delays) != 0 {
		t.Fatalf("want no delays, got %v", delays)
	}
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	attempts := 0
	transient := errors.New("still down")

	err := retryWithBackoff(context.Background(), 3, 1*time.Second, 3.0,
		recordingSleep(&delays),
		func(error) bool { return true },
		func() error {
			attempts++
			return transient
		})
	if !errors.Is(err, transient) {
		t.Fatalf("want transient error after exhaustion, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts, got %d", attempts)
	}
	want := []time.Duration{1 * time.Second, 3 * time.Second}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: want %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryWithBackoff(ctx, 3, time.Second, 2.0, sleepCtx,
		func(error) bool { return true },
		func() error { return errors.New("should not run") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
