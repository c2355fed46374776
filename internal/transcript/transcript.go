package transcript

import "strings"

// Segment is one timed span of transcript text. Offsets are expressed in the
// coordinate space of the whole video, not an individual chunk.
type Segment struct {
	Text       string `json:"text"`
	OffsetMs   int64  `json:"offset_ms"`
	DurationMs int64  `json:"duration_ms"`
}

// Transcript is an ordered sequence of segments. Offsets are non-decreasing;
// segments may overlap. A transcript is immutable once persisted.
type Transcript []Segment

// Text returns the segment texts joined with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t))
	for _, s := range t {
		txt := strings.TrimSpace(s.Text)
		if txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// Ordered reports whether offsets are non-decreasing across the sequence.
func (t Transcript) Ordered() bool {
	for i := 1; i < len(t); i++ {
		if t[i].OffsetMs < t[i-1].OffsetMs {
			return false
		}
	}
	return true
}
