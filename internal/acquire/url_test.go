package acquire

import (
	"testing"

	"github.com/reelnotes/scribed/internal/fault"
)

func TestParseWatchURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare_id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch_url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch_url_extra_params", "https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s&list=PL1", "dQw4w9WgXcQ", true},
		{"short_link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short_link_with_query", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", true},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"music", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"trailing_slash", "https://www.youtube.com/shorts/dQw4w9WgXcQ/", "dQw4w9WgXcQ", true},
		{"whitespace", "  dQw4w9WgXcQ  ", "dQw4w9WgXcQ", true},
		{"empty", "", "", false},
		{"id_too_short", "abc123", "", false},
		{"id_too_long", "dQw4w9WgXcQQ", "", false},
		{"id_bad_chars", "dQw4w9WgXc!", "", false},
		{"wrong_host", "https://vimeo.com/watch?v=dQw4w9WgXcQ", "", false},
		{"watch_without_v", "https://www.youtube.com/watch?list=PL1", "", false},
		{"channel_path", "https://www.youtube.com/@somechannel", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseWatchURL(tc.in)
			if tc.ok {
				if err != nil {
					t.Fatalf("ParseWatchURL(%q): %v", tc.in, err)
				}
				if got != tc.want {
					t.Errorf("ParseWatchURL(%q) = %q, want %q", tc.in, got, tc.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseWatchURL(%q) = %q, want error", tc.in, got)
			}
			if fault.ClassOf(err) != fault.InvalidInput {
				t.Errorf("class = %v, want InvalidInput", fault.ClassOf(err))
			}
		})
	}
}

func TestWatchURLRoundTrip(t *testing.T) {
	id, err := ParseWatchURL(WatchURL("dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("ParseWatchURL: %v", err)
	}
	if id != "dQw4w9WgXcQ" {
		t.Errorf("id = %q", id)
	}
}

func TestChunkFileName(t *testing.T) {
	got := ChunkFileName("dQw4w9WgXcQ", 0)
	if got != "audio_dQw4w9WgXcQ_000.wav" {
		t.Errorf("ChunkFileName = %q", got)
	}
	if got := ChunkFileName("dQw4w9WgXcQ", 41); got != "audio_dQw4w9WgXcQ_041.wav" {
		t.Errorf("ChunkFileName = %q", got)
	}
}
