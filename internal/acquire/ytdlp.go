package acquire

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/fault"
)

// defaultUserAgents is the identity rotation list used when none is
// configured. Rotating per attempt dodges per-client throttling.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// YtdlpDownloader fetches source media via the yt-dlp external tool.
type YtdlpDownloader struct {
	binary     string
	proxy      string
	cookies    string
	userAgents []string
	timeout    time.Duration
	log        zerolog.Logger
}

// YtdlpOptions configures the yt-dlp downloader. Proxy and Cookies are
// optional session configuration, not control flow.
type YtdlpOptions struct {
	Binary     string
	Proxy      string
	Cookies    string
	UserAgents []string
	Timeout    time.Duration
	Log        zerolog.Logger
}

func NewYtdlpDownloader(opts YtdlpOptions) *YtdlpDownloader {
	binary := opts.Binary
	if binary == "" {
		binary = "yt-dlp"
	}
	uas := opts.UserAgents
	if len(uas) == 0 {
		uas = defaultUserAgents
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &YtdlpDownloader{
		binary:     binary,
		proxy:      opts.Proxy,
		cookies:    opts.Cookies,
		userAgents: uas,
		timeout:    timeout,
		log:        opts.Log.With().Str("component", "ytdlp").Logger(),
	}
}

// Download fetches the audio track for videoID into destDir and returns the
// local file path. attempt is 1-based and selects the client identity.
func (d *YtdlpDownloader) Download(ctx context.Context, videoID, destDir string, attempt int) (string, error) {
	dest := filepath.Join(destDir, "source_"+videoID+".m4a")
	ua := d.userAgents[(attempt-1)%len(d.userAgents)]

	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"--user-agent", ua,
		"-o", dest,
	}
	if d.proxy != "" {
		args = append(args, "--proxy", d.proxy)
	}
	if d.cookies != "" {
		args = append(args, "--cookies", d.cookies)
	}
	args = append(args, WatchURL(videoID))

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fault.New(fault.Timeout, "download", videoID, ctx.Err())
		}
		class := classifyDownloadError(string(out))
		d.log.Debug().Str("video_id", videoID).Int("attempt", attempt).
			Str("class", class.String()).Msg("download attempt failed")
		return "", fault.New(class, "download", videoID,
			fmt.Errorf("yt-dlp: %w: %s", err, firstLine(string(out))))
	}
	return dest, nil
}

// classifyDownloadError maps yt-dlp output onto the fault taxonomy. Content
// restrictions never retry; rate limiting and timeouts do.
func classifyDownloadError(output string) fault.Class {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "private video"),
		strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "has been removed"),
		strings.Contains(lower, "sign in to confirm your age"),
		strings.Contains(lower, "blocked"):
		return fault.UnavailableContent
	case strings.Contains(lower, "429"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "rate-limit"),
		strings.Contains(lower, "rate limit"):
		return fault.Throttled
	case strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timeout"):
		return fault.Timeout
	default:
		return fault.Unknown
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
