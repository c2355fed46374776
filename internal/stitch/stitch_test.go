package stitch

import (
	"testing"
	"time"

	"github.com/reelnotes/scribed/internal/stt"
)

func TestStitchOffsetsNonDecreasing(t *testing.T) {
	chunks := [][]stt.Segment{
		{
			{Text: "hello", Start: 0.0, End: 2.5},
			{Text: "world", Start: 2.5, End: 5.0},
		},
		{
			{Text: "second", Start: 0.2, End: 3.1},
			{Text: "chunk", Start: 3.1, End: 6.0},
		},
		{
			{Text: "third", Start: 0.5, End: 2.0},
		},
	}

	out := Stitch(chunks, time.Minute)
	if len(out) != 5 {
		t.Fatalf("segments = %d, want 5", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].OffsetMs < out[i-1].OffsetMs {
			t.Errorf("offset[%d] = %d < offset[%d] = %d, ordering violated",
				i, out[i].OffsetMs, i-1, out[i-1].OffsetMs)
		}
	}
	if !out.Ordered() {
		t.Error("Ordered() = false on stitched output")
	}
}

// Chunks shorter than the nominal duration advance the timeline by their
// actual speech extent, not the nominal chunk length.
func TestStitchUsesActualChunkExtent(t *testing.T) {
	chunks := [][]stt.Segment{
		{
			{Text: "ends early", Start: 0.0, End: 58.2},
		},
		{
			{Text: "also short", Start: 0.0, End: 59.9},
		},
		{
			{Text: "tail", Start: 1.0, End: 4.0},
		},
	}

	out := Stitch(chunks, time.Minute)
	if len(out) != 3 {
		t.Fatalf("segments = %d, want 3", len(out))
	}
	if out[1].OffsetMs != 58200 {
		t.Errorf("chunk 2 offset = %d, want 58200 (previous chunk ended at 58.2s)", out[1].OffsetMs)
	}
	if want := int64(58200 + 59900 + 1000); out[2].OffsetMs != want {
		t.Errorf("chunk 3 offset = %d, want %d", out[2].OffsetMs, want)
	}
}

func TestStitchEmptyChunkAdvancesNominal(t *testing.T) {
	chunks := [][]stt.Segment{
		{}, // silence or fully filtered
		{
			{Text: "after gap", Start: 1.5, End: 3.0},
		},
	}

	out := Stitch(chunks, 60*time.Second)
	if len(out) != 1 {
		t.Fatalf("segments = %d, want 1", len(out))
	}
	if out[0].OffsetMs != 60000+1500 {
		t.Errorf("offset = %d, want 61500 (nominal advance plus chunk-relative start)", out[0].OffsetMs)
	}
}

func TestStitchDurations(t *testing.T) {
	chunks := [][]stt.Segment{
		{
			{Text: "a", Start: 1.25, End: 3.75},
		},
	}
	out := Stitch(chunks, time.Minute)
	if out[0].OffsetMs != 1250 {
		t.Errorf("offset = %d, want 1250", out[0].OffsetMs)
	}
	if out[0].DurationMs != 2500 {
		t.Errorf("duration = %d, want 2500", out[0].DurationMs)
	}
}

func TestStitchDropsWhitespaceText(t *testing.T) {
	chunks := [][]stt.Segment{
		{
			{Text: "   ", Start: 0.0, End: 1.0},
			{Text: "kept", Start: 1.0, End: 2.0},
		},
	}
	out := Stitch(chunks, time.Minute)
	if len(out) != 1 || out[0].Text != "kept" {
		t.Errorf("out = %+v, want single kept segment", out)
	}
}

func TestStitchAllEmpty(t *testing.T) {
	out := Stitch([][]stt.Segment{{}, {}, {}}, time.Minute)
	if len(out) != 0 {
		t.Errorf("segments = %d, want 0", len(out))
	}
}
