package acquire

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/reelnotes/scribed/internal/fault"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseWatchURL derives the stable video id from a watch URL. Accepts
// youtube.com/watch?v=, youtu.be/, youtube.com/shorts/, and a bare 11-char
// id. Malformed input is a fatal InvalidInput fault.
func ParseWatchURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fault.New(fault.InvalidInput, "acquire", "", fmt.Errorf("parse url %q: %w", raw, err))
	}

	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		}
	case "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	}
	id = strings.TrimSuffix(id, "/")

	if !videoIDPattern.MatchString(id) {
		return "", fault.New(fault.InvalidInput, "acquire", "", fmt.Errorf("no video id in %q", raw))
	}
	return id, nil
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
