package refine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/transcript"
)

type fakeCorrector struct {
	out   string
	err   error
	calls int
}

func (c *fakeCorrector) Correct(ctx context.Context, text, contextTitle string) (string, error) {
	c.calls++
	return c.out, c.err
}

func TestRefineSuccess(t *testing.T) {
	c := &fakeCorrector{out: "Hello, world."}
	r := New(Options{Corrector: c, Log: zerolog.Nop()})

	got := r.Refine(context.Background(), "helo wrld", "Greeting Video")
	if got != "Hello, world." {
		t.Errorf("Refine = %q", got)
	}
	if c.calls != 1 {
		t.Errorf("calls = %d", c.calls)
	}
}

func TestRefineNeverFatal(t *testing.T) {
	t.Run("nil_corrector_passthrough", func(t *testing.T) {
		r := New(Options{Log: zerolog.Nop()})
		if got := r.Refine(context.Background(), "raw text", ""); got != "raw text" {
			t.Errorf("Refine = %q", got)
		}
	})

	t.Run("error_falls_back_to_input", func(t *testing.T) {
		c := &fakeCorrector{err: errors.New("api down")}
		r := New(Options{Corrector: c, Log: zerolog.Nop()})
		if got := r.Refine(context.Background(), "raw text", ""); got != "raw text" {
			t.Errorf("Refine = %q, errors must fall back to the input", got)
		}
	})

	t.Run("empty_result_falls_back_to_input", func(t *testing.T) {
		c := &fakeCorrector{out: "   "}
		r := New(Options{Corrector: c, Log: zerolog.Nop()})
		if got := r.Refine(context.Background(), "raw text", ""); got != "raw text" {
			t.Errorf("Refine = %q", got)
		}
	})

	t.Run("empty_input_skips_corrector", func(t *testing.T) {
		c := &fakeCorrector{out: "something"}
		r := New(Options{Corrector: c, Log: zerolog.Nop()})
		r.Refine(context.Background(), "  ", "")
		if c.calls != 0 {
			t.Errorf("calls = %d, blank input should not reach the corrector", c.calls)
		}
	})
}

func TestRealignPreservesTiming(t *testing.T) {
	original := transcript.Transcript{
		{Text: "helo there", OffsetMs: 0, DurationMs: 2000},
		{Text: "generl kenobi", OffsetMs: 2000, DurationMs: 2500},
	}

	out := Realign("Hello there. General Kenobi.", original)
	if len(out) != len(original) {
		t.Fatalf("segments = %d, want %d", len(out), len(original))
	}
	for i := range out {
		if out[i].OffsetMs != original[i].OffsetMs {
			t.Errorf("segment %d offset changed: %d != %d", i, out[i].OffsetMs, original[i].OffsetMs)
		}
		if out[i].DurationMs != original[i].DurationMs {
			t.Errorf("segment %d duration changed", i)
		}
	}

	joined := strings.Join([]string{out[0].Text, out[1].Text}, " ")
	if joined != "Hello there. General Kenobi." {
		t.Errorf("rejoined text = %q, refined text must be fully distributed", joined)
	}
}

func TestRealignNeverSplitsWords(t *testing.T) {
	original := transcript.Transcript{
		{Text: "aaaa", OffsetMs: 0, DurationMs: 1000},
		{Text: "bbbb", OffsetMs: 1000, DurationMs: 1000},
		{Text: "cccc", OffsetMs: 2000, DurationMs: 1000},
	}

	out := Realign("short and considerably longer refined text", original)
	for i, s := range out {
		for _, w := range strings.Fields(s.Text) {
			if !strings.Contains("short and considerably longer refined text", w) {
				t.Errorf("segment %d contains a split word %q", i, w)
			}
		}
	}
}

func TestRealignEdgeCases(t *testing.T) {
	t.Run("empty_original", func(t *testing.T) {
		out := Realign("text", nil)
		if len(out) != 0 {
			t.Errorf("out = %v", out)
		}
	})

	t.Run("empty_refined_keeps_original", func(t *testing.T) {
		original := transcript.Transcript{{Text: "keep me", OffsetMs: 0, DurationMs: 1000}}
		out := Realign("", original)
		if out[0].Text != "keep me" {
			t.Errorf("text = %q", out[0].Text)
		}
	})

	t.Run("single_segment_takes_everything", func(t *testing.T) {
		original := transcript.Transcript{{Text: "x", OffsetMs: 500, DurationMs: 1000}}
		out := Realign("the whole refined text", original)
		if out[0].Text != "the whole refined text" {
			t.Errorf("text = %q", out[0].Text)
		}
		if out[0].OffsetMs != 500 {
			t.Errorf("offset = %d", out[0].OffsetMs)
		}
	})
}
