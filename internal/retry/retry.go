// Package retry implements the bounded exponential-backoff policy shared by
// the download and transcription stages.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy controls how an operation is retried. Only errors for which
// Retryable returns true are retried; everything else escalates immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// retryHinter is implemented by errors carrying a provider-supplied delay
// (e.g. a Retry-After header). A positive hint overrides the computed backoff.
type retryHinter interface {
	RetryAfter() time.Duration
}

// attemptCounter lets Do record the total attempt count on classified errors.
type attemptCounter interface {
	error
	SetAttempts(n int)
}

// Do runs op up to MaxAttempts times. The attempt argument is 1-based. The
// delay before attempt n+1 is BaseDelay*2^(n-1) capped at MaxDelay, unless
// the error carries its own retry hint. Do never sleeps after the final
// attempt; it returns the last error with the attempt count attached.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return withAttempts(err, attempt)
		}
		if attempt == attempts {
			break
		}
		if serr := sleep(ctx, p.delay(attempt, err)); serr != nil {
			return withAttempts(err, attempt)
		}
	}
	return withAttempts(err, attempts)
}

func (p Policy) delay(attempt int, err error) time.Duration {
	var h retryHinter
	if errors.As(err, &h) {
		if d := h.RetryAfter(); d > 0 {
			return d
		}
	}

	d := p.BaseDelay
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func withAttempts(err error, n int) error {
	var ac attemptCounter
	if errors.As(err, &ac) {
		ac.SetAttempts(n)
	}
	return err
}
