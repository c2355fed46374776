// Package preprocess conditions chunk audio before speech recognition.
package preprocess

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// soxAvailable caches whether sox is in PATH (checked once at startup).
var soxAvailable *bool

// CheckSox checks if sox is available in PATH. Call once at startup.
func CheckSox() bool {
	if soxAvailable != nil {
		return *soxAvailable
	}
	_, err := exec.LookPath("sox")
	avail := err == nil
	soxAvailable = &avail
	return avail
}

// Process applies the fixed conditioning chain for speech recognition:
//   - Resample to 16kHz mono
//   - Voice bandpass 300-3000Hz via sinc, removing out-of-band noise
//   - Normalize volume
//
// Returns the path to a temporary WAV file and a cleanup function. If sox is
// unavailable, returns the original path with a no-op cleanup; chunks then go
// to the transcriber unconditioned rather than failing the run.
func Process(ctx context.Context, inputPath string) (string, func(), error) {
	noop := func() {}

	if !CheckSox() {
		return inputPath, noop, nil
	}

	outPath := filepath.Join(os.TempDir(),
		fmt.Sprintf("scribed-preprocess-%d-%s", os.Getpid(), filepath.Base(inputPath)))

	cmd := exec.CommandContext(ctx, "sox",
		inputPath, outPath,
		"rate", "16000",
		"channels", "1",
		"sinc", "300-3000",
		"norm",
	)
	if err := cmd.Run(); err != nil {
		// Clean up partial output
		os.Remove(outPath)
		return inputPath, noop, fmt.Errorf("sox preprocess: %w", err)
	}

	cleanup := func() {
		os.Remove(outPath)
	}
	return outPath, cleanup, nil
}
