// Package acquire downloads source media, verifies it, slices it into
// fixed-duration chunks, and stages the chunks for transcription. Every exit
// path removes the local work directory for the video; staged chunks are
// purged by Cleanup, which the orchestrator runs after transcription and
// Acquire itself runs on failure.
package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/fault"
	"github.com/reelnotes/scribed/internal/retry"
	"github.com/reelnotes/scribed/internal/storage"
)

// State tracks a chunk through its lifecycle. Every chunk ends in
// StateDeleted regardless of which prior state it reached.
type State int

const (
	StateRaw State = iota
	StatePreprocessed
	StateTranscribed
	StateDeleted
)

// Chunk is one fixed-duration slice of a video's audio track. Chunks are
// scoped to a single pipeline run and never escape it.
type Chunk struct {
	VideoID    string
	Seq        int
	LocalPath  string // set while a working copy exists on disk
	StorageKey string // staged location in the chunk store
	State      State
}

// Downloader fetches the source media for a video. attempt is 1-based so
// implementations can rotate client identity per attempt.
type Downloader interface {
	Download(ctx context.Context, videoID, destDir string, attempt int) (string, error)
}

// Segmenter slices source media into fixed-duration chunks named
// audio_{videoID}_{seq:03d}.
type Segmenter interface {
	Segment(ctx context.Context, src, outDir, videoID string, chunkSeconds int) ([]string, error)
}

// Options configures an Acquirer.
type Options struct {
	Downloader   Downloader
	Segmenter    Segmenter
	Store        storage.ChunkStore
	WorkDir      string
	MinBytes     int64 // downloads below this size are integrity failures
	ChunkSeconds int
	Attempts     int // download retry budget, retryable class only
	Backoff      time.Duration
	BackoffMax   time.Duration
	Log          zerolog.Logger
}

// Acquirer implements the acquisition stage.
type Acquirer struct {
	dl           Downloader
	seg          Segmenter
	store        storage.ChunkStore
	workDir      string
	minBytes     int64
	chunkSeconds int
	policy       retry.Policy
	log          zerolog.Logger
}

func New(opts Options) *Acquirer {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 3
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	backoffMax := opts.BackoffMax
	if backoffMax <= 0 {
		backoffMax = 30 * time.Second
	}
	chunkSeconds := opts.ChunkSeconds
	if chunkSeconds <= 0 {
		chunkSeconds = 60
	}
	return &Acquirer{
		dl:           opts.Downloader,
		seg:          opts.Segmenter,
		store:        opts.Store,
		workDir:      opts.WorkDir,
		minBytes:     opts.MinBytes,
		chunkSeconds: chunkSeconds,
		policy: retry.Policy{
			MaxAttempts: attempts,
			BaseDelay:   backoff,
			MaxDelay:    backoffMax,
			Retryable:   fault.Retryable,
		},
		log: opts.Log.With().Str("component", "acquire").Logger(),
	}
}

// Acquire resolves rawURL to a video id, downloads and verifies the media,
// segments it, and stages the chunks. On success the returned chunks are
// staged in the chunk store and no local work files remain. On failure all
// local and staged artifacts for the video are removed before returning.
func (a *Acquirer) Acquire(ctx context.Context, rawURL string) (videoID string, chunks []*Chunk, err error) {
	videoID, err = ParseWatchURL(rawURL)
	if err != nil {
		return "", nil, err
	}
	log := a.log.With().Str("video_id", videoID).Logger()

	// Idempotent pre-cleanup: a crashed or interrupted earlier run must not
	// leave artifacts that pollute this one.
	if err := a.purge(ctx, videoID); err != nil {
		log.Warn().Err(err).Msg("pre-cleanup failed, continuing")
	}

	dir := filepath.Join(a.workDir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fault.New(fault.Unknown, "acquire", videoID, fmt.Errorf("mkdir workdir: %w", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn().Err(rmErr).Msg("workdir removal failed")
		}
		if err != nil {
			// Acquisition failed: staged artifacts are purged here rather
			// than by the orchestrator, which never sees these chunks.
			a.markDeleted(chunks)
			chunks = nil
			// Cleanup must run even when the run was canceled.
			if pErr := a.store.DeletePrefix(context.WithoutCancel(ctx), storage.ChunkPrefix(videoID)); pErr != nil {
				log.Warn().Err(pErr).Msg("staged chunk purge failed")
			}
		}
	}()

	var srcPath string
	err = a.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		p, dlErr := a.dl.Download(ctx, videoID, dir, attempt)
		if dlErr != nil {
			return dlErr
		}
		srcPath = p
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	info, statErr := os.Stat(srcPath)
	if statErr != nil {
		err = fault.New(fault.IntegrityFailure, "acquire", videoID, fmt.Errorf("stat download: %w", statErr))
		return "", nil, err
	}
	if info.Size() < a.minBytes {
		err = fault.New(fault.IntegrityFailure, "acquire", videoID,
			fmt.Errorf("download %d bytes, below %d byte minimum", info.Size(), a.minBytes))
		return "", nil, err
	}

	paths, segErr := a.seg.Segment(ctx, srcPath, dir, videoID, a.chunkSeconds)
	if segErr != nil {
		err = fault.New(fault.Unknown, "segment", videoID, segErr)
		return "", nil, err
	}
	if len(paths) == 0 {
		err = fault.New(fault.IntegrityFailure, "segment", videoID, fmt.Errorf("segmentation produced zero chunks"))
		return "", nil, err
	}
	if len(paths) == 1 {
		log.Info().Msg("single chunk produced, likely a short video")
	}

	for seq, p := range paths {
		key := storage.ChunkPrefix(videoID) + ChunkFileName(videoID, seq)
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			err = fault.New(fault.Unknown, "stage", videoID, fmt.Errorf("read chunk %d: %w", seq, readErr))
			return "", nil, err
		}
		if saveErr := a.store.Save(ctx, key, data, "audio/wav"); saveErr != nil {
			err = fault.New(fault.Unknown, "stage", videoID, fmt.Errorf("stage chunk %d: %w", seq, saveErr))
			return "", nil, err
		}
		chunks = append(chunks, &Chunk{
			VideoID:    videoID,
			Seq:        seq,
			StorageKey: key,
			State:      StateRaw,
		})
	}

	log.Info().Int("chunks", len(chunks)).Int64("bytes", info.Size()).
		Str("staging", a.store.Type()).Msg("audio acquired")
	return videoID, chunks, nil
}

// Materialize copies a staged chunk to a local temp file for processing and
// returns the path with a removal func.
func (a *Acquirer) Materialize(ctx context.Context, chunk *Chunk) (string, func(), error) {
	rc, err := a.store.Open(ctx, chunk.StorageKey)
	if err != nil {
		return "", nil, fmt.Errorf("open staged chunk %s: %w", chunk.StorageKey, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "scribed-chunk-*.wav")
	if err != nil {
		return "", nil, err
	}
	path := tmp.Name()
	if _, err := tmp.ReadFrom(rc); err != nil {
		tmp.Close()
		os.Remove(path)
		return "", nil, fmt.Errorf("materialize chunk %s: %w", chunk.StorageKey, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}

	chunk.LocalPath = path
	cleanup := func() {
		os.Remove(path)
		chunk.LocalPath = ""
	}
	return path, cleanup, nil
}

// Cleanup removes every local and staged artifact for the video and marks
// the chunks deleted. Safe to call repeatedly and on partial state.
func (a *Acquirer) Cleanup(ctx context.Context, videoID string, chunks []*Chunk) error {
	a.markDeleted(chunks)
	return a.purge(ctx, videoID)
}

func (a *Acquirer) markDeleted(chunks []*Chunk) {
	for _, c := range chunks {
		if c.LocalPath != "" {
			os.Remove(c.LocalPath)
			c.LocalPath = ""
		}
		c.State = StateDeleted
	}
}

func (a *Acquirer) purge(ctx context.Context, videoID string) error {
	var firstErr error
	if err := os.RemoveAll(filepath.Join(a.workDir, videoID)); err != nil {
		firstErr = err
	}
	if err := a.store.DeletePrefix(ctx, storage.ChunkPrefix(videoID)); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
