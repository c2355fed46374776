package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	AuthToken    string        `env:"AUTH_TOKEN"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	// Language selection for captions and transcription.
	Language         string `env:"LANGUAGE" envDefault:"en"`
	CaptionFallbacks string `env:"CAPTION_FALLBACKS" envDefault:"ta,hi,en"`

	// Acquisition.
	WorkDir            string        `env:"WORK_DIR" envDefault:"./work"`
	YtdlpPath          string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	DownloadProxy      string        `env:"DOWNLOAD_PROXY"`
	CookiesFile        string        `env:"COOKIES_FILE"`
	UserAgents         string        `env:"USER_AGENTS"` // comma-separated, rotated per attempt
	DownloadAttempts   int           `env:"DOWNLOAD_ATTEMPTS" envDefault:"4"`
	DownloadBackoff    time.Duration `env:"DOWNLOAD_BACKOFF" envDefault:"2s"`
	DownloadBackoffMax time.Duration `env:"DOWNLOAD_BACKOFF_MAX" envDefault:"30s"`
	DownloadTimeout    time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"5m"`
	MinDownloadBytes   int64         `env:"MIN_DOWNLOAD_BYTES" envDefault:"10240"`
	ChunkSeconds       int           `env:"CHUNK_SECONDS" envDefault:"60"`

	// Speech-to-text.
	WhisperURL      string        `env:"WHISPER_URL" envDefault:"http://localhost:9000/v1/audio/transcriptions"`
	WhisperModel    string        `env:"WHISPER_MODEL" envDefault:"whisper-1"`
	WhisperTimeout  time.Duration `env:"WHISPER_TIMEOUT" envDefault:"60s"`
	WhisperAttempts int           `env:"WHISPER_ATTEMPTS" envDefault:"3"`
	PreprocessAudio bool          `env:"PREPROCESS_AUDIO" envDefault:"true"`
	ChunkWorkers    int           `env:"CHUNK_WORKERS" envDefault:"4"`

	// Refinement (best-effort grammar pass).
	OpenAIKey       string        `env:"OPENAI_API_KEY"`
	RefineModel     string        `env:"REFINE_MODEL" envDefault:"gpt-4o-mini"`
	RefineTimeout   time.Duration `env:"REFINE_TIMEOUT" envDefault:"30s"`
	RefineMaxTokens int           `env:"REFINE_MAX_TOKENS" envDefault:"4096"`

	// Deployment profile: when true the whisper fallback never runs and
	// missing captions surface as "unavailable".
	SkipSynthesis bool `env:"SKIP_SYNTHESIS" envDefault:"false"`

	// Persistence retention.
	Retention time.Duration `env:"TRANSCRIPT_RETENTION" envDefault:"720h"`

	S3 S3Config
}

// S3Config configures the optional object-storage staging backend. Chunks
// stay on local disk when no bucket is configured.
type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX"`
}

// Enabled reports whether S3 staging is configured.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// FallbackLangs returns the parsed caption fallback language list.
func (c *Config) FallbackLangs() []string {
	var langs []string
	for _, l := range strings.Split(c.CaptionFallbacks, ",") {
		l = strings.TrimSpace(l)
		if l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// UserAgentList returns the parsed client-identity rotation list.
func (c *Config) UserAgentList() []string {
	var uas []string
	for _, ua := range strings.Split(c.UserAgents, ",") {
		ua = strings.TrimSpace(ua)
		if ua != "" {
			uas = append(uas, ua)
		}
	}
	return uas
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	WorkDir     string
}

// Load reads configuration from .env file, environment variables, and CLI
// overrides. Priority: CLI flags > environment variables > .env file >
// struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.WorkDir != "" {
		cfg.WorkDir = overrides.WorkDir
	}

	return cfg, nil
}
