package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/config"
)

// ChunkStore abstracts the staging area that moves audio chunks between
// acquisition and transcription. Keys are always namespaced by video id
// ("chunks/{videoID}/..."), so listing and purging one video's artifacts is
// unambiguous even with other videos' chunks present.
type ChunkStore interface {
	// Save stores chunk data under key.
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// Open returns a reader for the chunk.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks whether a chunk exists.
	Exists(ctx context.Context, key string) bool

	// List returns all keys under the given prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// DeletePrefix removes every object under the given prefix. Removing a
	// prefix with no objects is not an error.
	DeletePrefix(ctx context.Context, prefix string) error

	// Type returns "local" or "s3".
	Type() string
}

// ChunkPrefix is the store prefix holding every staged chunk for one video.
func ChunkPrefix(videoID string) string {
	return "chunks/" + videoID + "/"
}

// New creates a ChunkStore based on config: S3 when a bucket is configured,
// otherwise a local staging directory. Returns an error if S3 is configured
// but unreachable.
func New(cfg config.S3Config, stageDir string, log zerolog.Logger) (ChunkStore, error) {
	if !cfg.Enabled() {
		return NewLocalStore(stageDir), nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	return s3store, nil
}
