// Package captions retrieves authored caption tracks from the YouTube
// timedtext endpoint.
package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/fault"
	"github.com/reelnotes/scribed/internal/transcript"
)

const defaultBaseURL = "https://www.youtube.com/api/timedtext"

// Fetcher fetches caption tracks, trying a preferred language first and then
// an ordered fallback list. A miss in one language is not a transient fault,
// so there is no backoff at this layer.
type Fetcher struct {
	baseURL   string
	fallbacks []string
	client    *http.Client
	log       zerolog.Logger
}

// Options configures a caption Fetcher.
type Options struct {
	BaseURL   string        // defaults to the YouTube timedtext endpoint
	Fallbacks []string      // tried in order after the preferred language
	Timeout   time.Duration // per-request timeout
	Log       zerolog.Logger
}

func New(opts Options) *Fetcher {
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		baseURL:   base,
		fallbacks: opts.Fallbacks,
		client:    &http.Client{Timeout: timeout},
		log:       opts.Log.With().Str("component", "captions").Logger(),
	}
}

// Fetch returns the first caption track found for videoID, trying preferred
// then each fallback language. Returns a NotFound fault when every language
// misses.
func (f *Fetcher) Fetch(ctx context.Context, videoID, preferred string) (transcript.Transcript, error) {
	langs := make([]string, 0, len(f.fallbacks)+1)
	if preferred != "" {
		langs = append(langs, preferred)
	}
	for _, l := range f.fallbacks {
		if l != "" && l != preferred {
			langs = append(langs, l)
		}
	}

	for _, lang := range langs {
		t, err := f.fetchLang(ctx, videoID, lang)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fault.New(fault.Timeout, "captions", videoID, ctx.Err())
			}
			f.log.Debug().Str("video_id", videoID).Str("lang", lang).Err(err).Msg("no caption track")
			continue
		}
		f.log.Info().Str("video_id", videoID).Str("lang", lang).Int("segments", len(t)).Msg("caption track found")
		return t, nil
	}

	return nil, fault.New(fault.NotFound, "captions", videoID,
		fmt.Errorf("no caption track in %v", langs))
}

// timedtextResponse is the json3 format returned by the timedtext endpoint.
type timedtextResponse struct {
	Events []struct {
		TStartMs    int64 `json:"tStartMs"`
		DDurationMs int64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (f *Fetcher) fetchLang(ctx context.Context, videoID, lang string) (transcript.Transcript, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	q.Set("fmt", "json3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext status %d", resp.StatusCode)
	}
	// The endpoint answers 200 with an empty body when no track exists.
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("empty timedtext body")
	}

	var tt timedtextResponse
	if err := json.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("decode timedtext: %w", err)
	}

	var t transcript.Transcript
	for _, ev := range tt.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.TrimSpace(strings.ReplaceAll(sb.String(), "\n", " "))
		if text == "" {
			continue
		}
		t = append(t, transcript.Segment{
			Text:       text,
			OffsetMs:   ev.TStartMs,
			DurationMs: ev.DDurationMs,
		})
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("timedtext track has no text events")
	}
	return t, nil
}
