// Package stitch merges per-chunk recognition results into one transcript by
// accumulating chunk-relative time offsets.
package stitch

import (
	"math"
	"strings"
	"time"

	"github.com/reelnotes/scribed/internal/stt"
	"github.com/reelnotes/scribed/internal/transcript"
)

// Stitch concatenates chunk results, in chunk order, into a transcript whose
// offsets are expressed in whole-video time. The running offset advances by
// the end time of each chunk's last retained segment, or by nominalChunk when
// a chunk yielded no segments, so an empty or fully-filtered chunk does not
// freeze the timeline. Non-decreasing offsets hold by construction.
func Stitch(chunkResults [][]stt.Segment, nominalChunk time.Duration) transcript.Transcript {
	var out transcript.Transcript
	var offsetMs int64

	for _, segs := range chunkResults {
		if len(segs) == 0 {
			offsetMs += nominalChunk.Milliseconds()
			continue
		}
		for _, s := range segs {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			out = append(out, transcript.Segment{
				Text:       text,
				OffsetMs:   offsetMs + toMs(s.Start),
				DurationMs: toMs(s.End - s.Start),
			})
		}
		offsetMs += toMs(segs[len(segs)-1].End)
	}
	return out
}

func toMs(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}
