// Package pipeline orchestrates transcript resolution for one video id:
// store lookup, authored-caption attempt, then the whisper synthesis
// fallback, with first-writer-wins persistence.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/reelnotes/scribed/internal/acquire"
	"github.com/reelnotes/scribed/internal/fault"
	"github.com/reelnotes/scribed/internal/metrics"
	"github.com/reelnotes/scribed/internal/meta"
	"github.com/reelnotes/scribed/internal/refine"
	"github.com/reelnotes/scribed/internal/stitch"
	"github.com/reelnotes/scribed/internal/stt"
	"github.com/reelnotes/scribed/internal/transcript"
)

var errNoSpeech = errors.New("no speech detected in any chunk")

// Store is the persisted transcript record keyed by video id. Put has
// first-writer-wins semantics: on a uniqueness conflict it returns the
// winning record with inserted=false instead of an error.
type Store interface {
	GetTranscript(ctx context.Context, videoID string) (transcript.Transcript, bool, error)
	PutTranscript(ctx context.Context, videoID string, t transcript.Transcript, source string) (transcript.Transcript, bool, error)
}

// CaptionSource attempts an authored caption track with language fallback.
type CaptionSource interface {
	Fetch(ctx context.Context, videoID, preferred string) (transcript.Transcript, error)
}

// Acquirer downloads, segments, and stages audio for a video.
type Acquirer interface {
	Acquire(ctx context.Context, rawURL string) (string, []*acquire.Chunk, error)
	Materialize(ctx context.Context, chunk *acquire.Chunk) (string, func(), error)
	Cleanup(ctx context.Context, videoID string, chunks []*acquire.Chunk) error
}

// Preprocessor conditions one chunk's audio before recognition.
type Preprocessor func(ctx context.Context, path string) (string, func(), error)

// Transcriber recognizes one chunk, already retried and confidence-filtered.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts stt.Opts) ([]stt.Segment, error)
}

// Refiner runs the best-effort grammar pass; it never fails.
type Refiner interface {
	Refine(ctx context.Context, text, contextTitle string) string
}

// MetadataSource resolves the video title used as prompt context.
type MetadataSource interface {
	Lookup(ctx context.Context, videoID string) meta.Info
}

// Options configures an Orchestrator. Collaborators are constructed once at
// process start and passed in; the orchestrator holds no hidden globals.
type Options struct {
	Store    Store
	Captions CaptionSource
	Acquirer Acquirer
	Prep     Preprocessor // nil disables preprocessing
	STT      Transcriber
	Refiner  Refiner        // nil disables refinement
	Metadata MetadataSource // nil disables prompt context

	Language     string
	ChunkLen     time.Duration // nominal chunk duration for stitching
	ChunkWorkers int64         // bounded parallelism for preprocessing

	// SkipSynthesis selects the deployment profile in which the whisper
	// fallback never runs and unrecovered faults degrade to "unavailable".
	SkipSynthesis bool

	Log zerolog.Logger
}

// Orchestrator drives the transcript acquisition state machine.
type Orchestrator struct {
	store    Store
	captions CaptionSource
	acquirer Acquirer
	prep     Preprocessor
	sttc     Transcriber
	refiner  Refiner
	metadata MetadataSource

	language      string
	chunkLen      time.Duration
	chunkWorkers  int64
	skipSynthesis bool

	// flight collapses concurrent first-time requests for the same video id
	// onto one run; the store's unique key alone would let both callers pay
	// for the full synthesis.
	flight singleflight.Group
	log    zerolog.Logger
}

func New(opts Options) *Orchestrator {
	chunkLen := opts.ChunkLen
	if chunkLen <= 0 {
		chunkLen = time.Minute
	}
	workers := opts.ChunkWorkers
	if workers < 1 {
		workers = 4
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	return &Orchestrator{
		store:         opts.Store,
		captions:      opts.Captions,
		acquirer:      opts.Acquirer,
		prep:          opts.Prep,
		sttc:          opts.STT,
		refiner:       opts.Refiner,
		metadata:      opts.Metadata,
		language:      lang,
		chunkLen:      chunkLen,
		chunkWorkers:  workers,
		skipSynthesis: opts.SkipSynthesis,
		log:           opts.Log.With().Str("component", "pipeline").Logger(),
	}
}

// Resolve returns the transcript for videoID, a nil transcript when it is
// unavailable, or a classified error. Concurrent callers for the same id
// share one run and receive identical results.
func (o *Orchestrator) Resolve(ctx context.Context, videoID string) (transcript.Transcript, error) {
	start := time.Now()
	v, err, shared := o.flight.Do(videoID, func() (any, error) {
		return o.resolve(ctx, videoID)
	})
	if shared {
		o.log.Debug().Str("video_id", videoID).Msg("joined in-flight resolution")
	}
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if o.skipSynthesis {
			// Skip-synthesis profile degrades unrecovered faults to the
			// same "unavailable" answer used when synthesis is disabled.
			o.log.Warn().Str("video_id", videoID).Err(err).Msg("fault degraded to unavailable")
			metrics.ResolvesTotal.WithLabelValues("unavailable").Inc()
			return nil, nil
		}
		metrics.ResolvesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	t, _ := v.(transcript.Transcript)
	return t, nil
}

func (o *Orchestrator) resolve(ctx context.Context, videoID string) (transcript.Transcript, error) {
	log := o.log.With().Str("video_id", videoID).Logger()

	// CacheHit
	if t, ok, err := o.store.GetTranscript(ctx, videoID); err != nil {
		return nil, fault.New(fault.Unknown, "store", videoID, err)
	} else if ok {
		log.Debug().Int("segments", len(t)).Msg("cache hit")
		metrics.ResolvesTotal.WithLabelValues("cache_hit").Inc()
		return t, nil
	}

	// PublicCaptionAttempt
	if t, err := o.captions.Fetch(ctx, videoID, o.language); err == nil {
		metrics.ResolvesTotal.WithLabelValues("captions").Inc()
		return o.persist(ctx, videoID, t, "captions")
	} else if c := fault.ClassOf(err); c != fault.NotFound {
		log.Warn().Str("class", c.String()).Err(err).Msg("caption fetch failed, falling back")
	}

	// WhisperFallback
	if o.skipSynthesis {
		log.Info().Msg("no captions and synthesis disabled by profile")
		metrics.ResolvesTotal.WithLabelValues("unavailable").Inc()
		return nil, nil
	}

	t, err := o.synthesize(ctx, videoID, log)
	if err != nil {
		return nil, err
	}
	metrics.ResolvesTotal.WithLabelValues("whisper").Inc()
	return o.persist(ctx, videoID, t, "whisper")
}

func (o *Orchestrator) persist(ctx context.Context, videoID string, t transcript.Transcript, source string) (transcript.Transcript, error) {
	winner, inserted, err := o.store.PutTranscript(ctx, videoID, t, source)
	if err != nil {
		return nil, fault.New(fault.Unknown, "persist", videoID, err)
	}
	if !inserted {
		// A concurrent caller persisted first; its record is authoritative.
		o.log.Debug().Str("video_id", videoID).Msg("lost persist race, using winning record")
		metrics.DuplicateWinsTotal.Inc()
	}
	return winner, nil
}

// synthesize runs the media-processing chain: acquire, preprocess (bounded
// parallel), transcribe (strictly sequential in chunk order), stitch, refine.
func (o *Orchestrator) synthesize(ctx context.Context, videoID string, log zerolog.Logger) (transcript.Transcript, error) {
	var title string
	if o.metadata != nil {
		title = o.metadata.Lookup(ctx, videoID).Title
	}

	id, chunks, err := o.acquirer.Acquire(ctx, acquire.WatchURL(videoID))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cErr := o.acquirer.Cleanup(context.WithoutCancel(ctx), id, chunks); cErr != nil {
			log.Warn().Err(cErr).Msg("chunk cleanup failed")
		}
	}()

	paths, release, err := o.prepareChunks(ctx, chunks)
	if err != nil {
		release()
		return nil, err
	}
	defer release()

	// Transcription is strictly sequential: the stitcher's running offset is
	// causally dependent on the previous chunk's last retained segment.
	results := make([][]stt.Segment, len(chunks))
	for i, chunk := range chunks {
		segs, err := o.sttc.Transcribe(ctx, paths[i], stt.Opts{
			Language: o.language,
			Prompt:   title,
		})
		if err != nil {
			return nil, stageFault(err, videoID)
		}
		chunk.State = acquire.StateTranscribed
		metrics.ChunksTranscribedTotal.Inc()
		results[i] = segs
	}

	t := stitch.Stitch(results, o.chunkLen)
	if len(t) == 0 {
		return nil, fault.New(fault.IntegrityFailure, "stitch", videoID, errNoSpeech)
	}

	if o.refiner != nil {
		refined := o.refiner.Refine(ctx, t.Text(), title)
		t = refine.Realign(refined, t)
	}

	log.Info().Int("chunks", len(chunks)).Int("segments", len(t)).Msg("transcript synthesized")
	return t, nil
}

// prepareChunks materializes and preprocesses every chunk with bounded
// parallelism. Chunks are mutually independent until transcription time.
func (o *Orchestrator) prepareChunks(ctx context.Context, chunks []*acquire.Chunk) ([]string, func(), error) {
	paths := make([]string, len(chunks))
	cleanups := make([]func(), len(chunks))
	errs := make([]error, len(chunks))

	sem := semaphore.NewWeighted(o.chunkWorkers)
	for i, chunk := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		go func(i int, chunk *acquire.Chunk) {
			defer sem.Release(1)

			path, rm, err := o.acquirer.Materialize(ctx, chunk)
			if err != nil {
				errs[i] = fault.New(fault.Unknown, "stage", chunk.VideoID, err)
				return
			}
			cleanups[i] = rm

			if o.prep != nil {
				prepped, rmPrep, err := o.prep(ctx, path)
				if err != nil {
					errs[i] = fault.New(fault.Unknown, "preprocess", chunk.VideoID, err)
					return
				}
				path = prepped
				prev := cleanups[i]
				cleanups[i] = func() { rmPrep(); prev() }
				chunk.State = acquire.StatePreprocessed
			}
			paths[i] = path
		}(i, chunk)
	}
	// Wait for all workers to drain.
	if err := sem.Acquire(context.Background(), o.chunkWorkers); err == nil {
		sem.Release(o.chunkWorkers)
	}

	release := func() {
		for _, c := range cleanups {
			if c != nil {
				c()
			}
		}
	}
	for _, err := range errs {
		if err != nil {
			return nil, release, err
		}
	}
	return paths, release, nil
}

// stageFault ensures escalated errors carry the video id for diagnosis.
func stageFault(err error, videoID string) error {
	if f, ok := err.(*fault.Fault); ok && f.VideoID == "" {
		f.VideoID = videoID
	}
	return err
}
