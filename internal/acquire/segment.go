package acquire

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

// ChunkFileName returns the deterministic chunk name for a video id and
// zero-padded sequence index, e.g. "audio_dQw4w9WgXcQ_003.wav".
func ChunkFileName(videoID string, seq int) string {
	return fmt.Sprintf("audio_%s_%03d.wav", videoID, seq)
}

// FFmpegSegmenter slices source media into fixed-duration WAV chunks
// resampled to the canonical rate the transcription backend expects.
type FFmpegSegmenter struct {
	binary string
}

func NewFFmpegSegmenter(binary string) *FFmpegSegmenter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegSegmenter{binary: binary}
}

// Segment splits src into chunkSeconds-long chunks in outDir and returns the
// produced paths in sequence order.
func (s *FFmpegSegmenter) Segment(ctx context.Context, src, outDir, videoID string, chunkSeconds int) ([]string, error) {
	pattern := filepath.Join(outDir, fmt.Sprintf("audio_%s_%%03d.wav", videoID))

	cmd := exec.CommandContext(ctx, s.binary,
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-f", "segment",
		"-segment_time", strconv.Itoa(chunkSeconds),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		pattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg segment: %w: %s", err, firstLine(string(out)))
	}

	// The naming scheme encodes the video id, so globbing is unambiguous
	// even with other videos' artifacts in the same directory.
	paths, err := filepath.Glob(filepath.Join(outDir, "audio_"+videoID+"_*.wav"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
