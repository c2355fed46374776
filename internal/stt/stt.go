// Package stt runs speech recognition per chunk under a timeout race and a
// bounded retry policy, filtering low-confidence output before it leaves the
// package.
package stt

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/fault"
	"github.com/reelnotes/scribed/internal/retry"
)

// Confidence thresholds. Segments at or beyond either bound are treated as
// hallucinated or silent and dropped; callers never see them.
const (
	MinAvgLogProb   = -0.4
	MaxNoSpeechProb = 0.4
)

// Segment is one recognized span, chunk-relative, in seconds.
type Segment struct {
	Text         string
	Start        float64
	End          float64
	AvgLogProb   float64
	NoSpeechProb float64
}

// Opts are per-request recognition options.
type Opts struct {
	Language string
	Prompt   string // context prompt seeded from video metadata
}

// Client is the raw speech-to-text backend. Implementations classify their
// errors with the fault taxonomy; only Throttled and Timeout are retried.
type Client interface {
	Transcribe(ctx context.Context, audioPath string, opts Opts) ([]Segment, error)
}

// Options configures a Transcriber.
type Options struct {
	Client   Client
	Timeout  time.Duration // per-attempt race, timing out counts as retryable
	Attempts int
	Log      zerolog.Logger
}

// Transcriber wraps a Client with the timeout race, retry policy, and
// confidence filter.
type Transcriber struct {
	client  Client
	timeout time.Duration
	policy  retry.Policy
	log     zerolog.Logger
}

func New(opts Options) *Transcriber {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 3
	}
	return &Transcriber{
		client:  opts.Client,
		timeout: timeout,
		policy: retry.Policy{
			MaxAttempts: attempts,
			BaseDelay:   2 * time.Second,
			MaxDelay:    time.Minute,
			Retryable:   fault.Retryable,
		},
		log: opts.Log.With().Str("component", "stt").Logger(),
	}
}

// Transcribe recognizes one chunk and returns its retained segments.
// Exhausting the retry budget is fatal for the caller's whole run; a
// silently skipped chunk would corrupt the stitched timeline.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string, opts Opts) ([]Segment, error) {
	var raw []Segment
	err := t.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()

		segs, err := t.client.Transcribe(attemptCtx, audioPath, opts)
		if err != nil {
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				err = fault.New(fault.Timeout, "transcribe", "", attemptCtx.Err())
			}
			t.log.Debug().Int("attempt", attempt).Err(err).Msg("transcription attempt failed")
			return err
		}
		raw = segs
		return nil
	})
	if err != nil {
		return nil, err
	}

	kept := raw[:0]
	dropped := 0
	for _, s := range raw {
		if s.AvgLogProb <= MinAvgLogProb || s.NoSpeechProb >= MaxNoSpeechProb {
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	if dropped > 0 {
		t.log.Debug().Int("dropped", dropped).Int("kept", len(kept)).Msg("low-confidence segments filtered")
	}
	return kept, nil
}
