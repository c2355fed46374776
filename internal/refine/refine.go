// Package refine runs a best-effort grammar and spelling pass over the
// synthesized transcript text. Refinement never fails the pipeline: any
// error, timeout, or empty result falls back to the input unchanged.
package refine

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Corrector is the text-correction collaborator.
type Corrector interface {
	Correct(ctx context.Context, text, contextTitle string) (string, error)
}

// Options configures a Refiner.
type Options struct {
	Corrector Corrector // nil disables refinement entirely
	Timeout   time.Duration
	Log       zerolog.Logger
}

// Refiner wraps a Corrector with a timeout and the never-fatal contract.
type Refiner struct {
	corrector Corrector
	timeout   time.Duration
	log       zerolog.Logger
}

func New(opts Options) *Refiner {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Refiner{
		corrector: opts.Corrector,
		timeout:   timeout,
		log:       opts.Log.With().Str("component", "refine").Logger(),
	}
}

// Refine returns the corrected text, or the input unchanged on any failure.
func (r *Refiner) Refine(ctx context.Context, text, contextTitle string) string {
	if r.corrector == nil || strings.TrimSpace(text) == "" {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	refined, err := r.corrector.Correct(ctx, text, contextTitle)
	if err != nil {
		r.log.Warn().Err(err).Msg("refinement failed, keeping raw transcript")
		return text
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		r.log.Warn().Msg("refinement returned empty text, keeping raw transcript")
		return text
	}
	return refined
}
