package refine

import (
	"strings"

	"github.com/reelnotes/scribed/internal/transcript"
)

// Realign re-partitions refined text onto the original per-segment
// character-length boundaries, preserving one text span per timed segment.
// The split is proportional: each segment receives a share of the refined
// text matching its share of the original text length. This is a heuristic;
// when correction changes text length materially the text-to-timestamp
// correspondence drifts within a segment's neighborhood.
func Realign(refined string, original transcript.Transcript) transcript.Transcript {
	if len(original) == 0 {
		return original
	}
	runes := []rune(refined)
	if len(runes) == 0 {
		return original
	}

	var totalLen int
	for _, s := range original {
		totalLen += len([]rune(s.Text))
	}
	if totalLen == 0 {
		return original
	}

	out := make(transcript.Transcript, len(original))
	pos := 0
	consumed := 0
	for i, s := range original {
		out[i] = s

		segLen := len([]rune(s.Text))
		consumed += segLen

		// Cut at the proportional boundary, extended to the next space so
		// words are never split across segments.
		end := len(runes) * consumed / totalLen
		if i == len(original)-1 {
			end = len(runes)
		} else {
			for end < len(runes) && runes[end] != ' ' {
				end++
			}
		}
		if end < pos {
			end = pos
		}

		out[i].Text = strings.TrimSpace(string(runes[pos:end]))
		pos = end
	}
	return out
}
