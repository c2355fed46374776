// Package meta looks up video metadata used to build the transcription
// context prompt and the refinement context title. Lookups are best-effort.
package meta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultOEmbedURL = "https://www.youtube.com/oembed"

// Client fetches video title/author via the oEmbed endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Info is the metadata subset the pipeline consumes.
type Info struct {
	Title  string `json:"title"`
	Author string `json:"author_name"`
}

func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultOEmbedURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "meta").Logger(),
	}
}

// Lookup returns metadata for videoID, or a zero Info if the lookup fails.
// Failures are logged and swallowed; metadata only seeds prompts.
func (c *Client) Lookup(ctx context.Context, videoID string) Info {
	q := url.Values{}
	q.Set("url", "https://www.youtube.com/watch?v="+videoID)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Info{}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Str("video_id", videoID).Err(err).Msg("metadata lookup failed")
		return Info{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug().Str("video_id", videoID).Int("status", resp.StatusCode).Msg("metadata lookup non-200")
		return Info{}
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.log.Debug().Str("video_id", videoID).Err(err).Msg("metadata decode failed")
		return Info{}
	}
	return info
}
