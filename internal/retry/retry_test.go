package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelnotes/scribed/internal/fault"
)

func TestDoRetryBound(t *testing.T) {
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Retryable:   fault.Retryable,
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt != calls {
			t.Errorf("attempt = %d, want %d", attempt, calls)
		}
		return fault.New(fault.Throttled, "download", "abc", errors.New("429"))
	})
	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts", calls)
	}
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}

	var f *fault.Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected *fault.Fault, got %T", err)
	}
	if f.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", f.Attempts)
	}
}

func TestDoNonRetryableEscalatesImmediately(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   fault.Retryable,
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return fault.New(fault.UnavailableContent, "download", "abc", errors.New("private video"))
	})
	if calls != 1 {
		t.Errorf("calls = %d, non-retryable faults must not be retried", calls)
	}
	if fault.ClassOf(err) != fault.UnavailableContent {
		t.Errorf("class = %v, want UnavailableContent", fault.ClassOf(err))
	}
}

func TestDoSucceedsMidway(t *testing.T) {
	p := Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		Retryable:   fault.Retryable,
	}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return fault.New(fault.Timeout, "stt", "abc", context.DeadlineExceeded)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoRetryHintOverridesBackoff(t *testing.T) {
	p := Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Hour, // would hang the test if the hint were ignored
		Retryable:   fault.Retryable,
	}

	f := fault.New(fault.Throttled, "stt", "abc", errors.New("429"))
	f.Hint = time.Millisecond

	start := time.Now()
	calls := 0
	p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return f
	})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("elapsed %v, hint should have overridden the hour-long backoff", elapsed)
	}
}

func TestDelayExponentialCapped(t *testing.T) {
	p := Policy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    400 * time.Millisecond,
		Retryable:   fault.Retryable,
	}

	plain := errors.New("no hint")
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 400 * time.Millisecond},
		{8, 400 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := p.delay(tc.attempt, plain); got != tc.want {
			t.Errorf("delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDoCanceledContextStopsRetrying(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		Retryable:   fault.Retryable,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return fault.New(fault.Throttled, "download", "abc", errors.New("429"))
	})
	if calls != 1 {
		t.Errorf("calls = %d, cancellation during backoff must stop the loop", calls)
	}
	if err == nil {
		t.Fatal("expected error")
	}
}
