package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/acquire"
	"github.com/reelnotes/scribed/internal/api"
	"github.com/reelnotes/scribed/internal/captions"
	"github.com/reelnotes/scribed/internal/config"
	"github.com/reelnotes/scribed/internal/database"
	"github.com/reelnotes/scribed/internal/meta"
	"github.com/reelnotes/scribed/internal/pipeline"
	"github.com/reelnotes/scribed/internal/preprocess"
	"github.com/reelnotes/scribed/internal/refine"
	"github.com/reelnotes/scribed/internal/storage"
	"github.com/reelnotes/scribed/internal/stt"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "postgres connection string")
	flag.StringVar(&overrides.WorkDir, "work-dir", "", "audio working directory")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("scribed starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	// Retention janitor
	janitor := database.NewJanitor(db, cfg.Retention, log)
	janitor.Start()
	defer janitor.Stop()

	// Chunk staging
	store, err := storage.New(cfg.S3, cfg.WorkDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chunk staging")
	}

	// Acquisition
	downloader := acquire.NewYtdlpDownloader(acquire.YtdlpOptions{
		Binary:     cfg.YtdlpPath,
		Proxy:      cfg.DownloadProxy,
		Cookies:    cfg.CookiesFile,
		UserAgents: cfg.UserAgentList(),
		Timeout:    cfg.DownloadTimeout,
		Log:        log,
	})
	acquirer := acquire.New(acquire.Options{
		Downloader:   downloader,
		Segmenter:    acquire.NewFFmpegSegmenter(""),
		Store:        store,
		WorkDir:      cfg.WorkDir,
		MinBytes:     cfg.MinDownloadBytes,
		ChunkSeconds: cfg.ChunkSeconds,
		Attempts:     cfg.DownloadAttempts,
		Backoff:      cfg.DownloadBackoff,
		BackoffMax:   cfg.DownloadBackoffMax,
		Log:          log,
	})

	// Speech recognition
	transcriber := stt.New(stt.Options{
		Client:   stt.NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.OpenAIKey),
		Timeout:  cfg.WhisperTimeout,
		Attempts: cfg.WhisperAttempts,
		Log:      log,
	})

	// Refinement is optional: no API key, no grammar pass.
	var corrector refine.Corrector
	if cfg.OpenAIKey != "" {
		corrector = refine.NewOpenAICorrector(cfg.OpenAIKey, cfg.RefineModel, cfg.RefineMaxTokens)
	}
	refiner := refine.New(refine.Options{
		Corrector: corrector,
		Timeout:   cfg.RefineTimeout,
		Log:       log,
	})

	var prep pipeline.Preprocessor
	if cfg.PreprocessAudio {
		if preprocess.CheckSox() {
			log.Info().Msg("sox found, audio preprocessing enabled")
		} else {
			log.Warn().Msg("sox not found in PATH, chunks go to recognition unconditioned")
		}
		prep = preprocess.Process
	}

	// Orchestrator
	orchestrator := pipeline.New(pipeline.Options{
		Store:    db,
		Captions: captions.New(captions.Options{Fallbacks: cfg.FallbackLangs(), Log: log}),
		Acquirer: acquirer,
		Prep:     prep,
		STT:      transcriber,
		Refiner:  refiner,
		Metadata: meta.New("", 10*time.Second, log),

		Language:      cfg.Language,
		ChunkLen:      time.Duration(cfg.ChunkSeconds) * time.Second,
		ChunkWorkers:  int64(cfg.ChunkWorkers),
		SkipSynthesis: cfg.SkipSynthesis,
		Log:           log,
	})

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, db, orchestrator, store.Type(), version, startTime, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("scribed stopped")
}
