package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelnotes/scribed/internal/fault"
)

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.wav")
	if err := os.WriteFile(path, []byte("RIFFfake-wav-data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func verboseJSON(segs []whisperSegment) []byte {
	b, _ := json.Marshal(whisperResponse{Segments: segs})
	return b
}

func TestTranscribeConfidenceFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(verboseJSON([]whisperSegment{
			{Text: "kept", Start: 0, End: 2, AvgLogProb: -0.2, NoSpeechProb: 0.1},
			{Text: "hallucinated", Start: 2, End: 4, AvgLogProb: -0.9, NoSpeechProb: 0.1},
			{Text: "boundary logprob", Start: 4, End: 6, AvgLogProb: -0.4, NoSpeechProb: 0.1},
			{Text: "silence", Start: 6, End: 8, AvgLogProb: -0.2, NoSpeechProb: 0.4},
			{Text: "also kept", Start: 8, End: 10, AvgLogProb: -0.39, NoSpeechProb: 0.39},
		}))
	}))
	defer srv.Close()

	tr := New(Options{
		Client: NewWhisperClient(srv.URL, "whisper-1", ""),
		Log:    zerolog.Nop(),
	})

	segs, err := tr.Transcribe(context.Background(), writeTestAudio(t), Opts{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2 (boundary values must be dropped)", len(segs))
	}
	if segs[0].Text != "kept" || segs[1].Text != "also kept" {
		t.Errorf("kept = %q, %q", segs[0].Text, segs[1].Text)
	}
}

func TestTranscribeRetriesThrottled(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(verboseJSON([]whisperSegment{
			{Text: "finally", Start: 0, End: 1, AvgLogProb: -0.1, NoSpeechProb: 0.0},
		}))
	}))
	defer srv.Close()

	tr := New(Options{
		Client:   NewWhisperClient(srv.URL, "whisper-1", ""),
		Attempts: 3,
		Log:      zerolog.Nop(),
	})
	// Shrink the backoff for the test.
	tr.policy.BaseDelay = time.Millisecond
	tr.policy.MaxDelay = 5 * time.Millisecond

	segs, err := tr.Transcribe(context.Background(), writeTestAudio(t), Opts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(segs) != 1 || segs[0].Text != "finally" {
		t.Errorf("segs = %+v", segs)
	}
}

func TestTranscribeExhaustsRetryBudget(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tr := New(Options{
		Client:   NewWhisperClient(srv.URL, "whisper-1", ""),
		Attempts: 3,
		Log:      zerolog.Nop(),
	})
	tr.policy.BaseDelay = time.Millisecond
	tr.policy.MaxDelay = 5 * time.Millisecond

	_, err := tr.Transcribe(context.Background(), writeTestAudio(t), Opts{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly the attempt budget", calls)
	}
	if fault.ClassOf(err) != fault.Throttled {
		t.Errorf("class = %v, want Throttled", fault.ClassOf(err))
	}
}

func TestTranscribeNonRetryableStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := New(Options{
		Client:   NewWhisperClient(srv.URL, "whisper-1", ""),
		Attempts: 3,
		Log:      zerolog.Nop(),
	})

	_, err := tr.Transcribe(context.Background(), writeTestAudio(t), Opts{})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, 4xx responses other than 429 must not be retried", calls)
	}
}

func TestWhisperClientSendsForm(t *testing.T) {
	var gotModel, gotLang, gotFormat, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")
		gotFormat = r.FormValue("response_format")
		gotPrompt = r.FormValue("prompt")
		w.Write(verboseJSON(nil))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "whisper-1", "")
	_, err := wc.Transcribe(context.Background(), writeTestAudio(t), Opts{Language: "ta", Prompt: "Some Video Title"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q", gotModel)
	}
	if gotLang != "ta" {
		t.Errorf("language = %q", gotLang)
	}
	if gotFormat != "verbose_json" {
		t.Errorf("response_format = %q", gotFormat)
	}
	if gotPrompt != "Some Video Title" {
		t.Errorf("prompt = %q", gotPrompt)
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}
	for _, tc := range cases {
		if got := parseRetryAfter(tc.in); got != tc.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
