package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/reelnotes/scribed/internal/fault"
)

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint
// with response_format=verbose_json for segment-level confidence scores.
type WhisperClient struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

// whisperResponse is the parsed verbose_json response.
type whisperResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	Text         string  `json:"text"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	AvgLogProb   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

// NewWhisperClient creates a new Whisper HTTP client. The HTTP client
// carries no timeout of its own; each call is bounded by its context.
func NewWhisperClient(url, model, apiKey string) *WhisperClient {
	return &WhisperClient{
		url:    url,
		model:  model,
		apiKey: apiKey,
		client: &http.Client{},
	}
}

// Transcribe sends one chunk to the Whisper API. Uses multipart/form-data;
// works with speaches, faster-whisper-server, or the OpenAI endpoint.
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string, opts Opts) ([]Segment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	if wc.model != "" {
		w.WriteField("model", wc.model)
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	w.WriteField("language", lang)
	w.WriteField("temperature", "0.00")
	w.WriteField("response_format", "verbose_json")
	if opts.Prompt != "" {
		w.WriteField("prompt", opts.Prompt)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if wc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+wc.apiKey)
	}

	resp, err := wc.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fault.New(fault.Timeout, "transcribe", "", err)
		}
		return nil, fault.New(fault.Unknown, "transcribe", "", fmt.Errorf("whisper request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests:
		f := fault.New(fault.Throttled, "transcribe", "",
			fmt.Errorf("whisper API rate limited (status 429)"))
		f.Hint = parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, f
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fault.New(fault.Timeout, "transcribe", "",
			fmt.Errorf("whisper API timeout (status %d)", resp.StatusCode))
	default:
		return nil, fault.New(fault.Unknown, "transcribe", "",
			fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var result whisperResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fault.New(fault.Unknown, "transcribe", "", fmt.Errorf("decode response: %w", err))
	}

	segments := make([]Segment, 0, len(result.Segments))
	for _, s := range result.Segments {
		segments = append(segments, Segment{
			Text:         s.Text,
			Start:        s.Start,
			End:          s.End,
			AvgLogProb:   s.AvgLogProb,
			NoSpeechProb: s.NoSpeechProb,
		})
	}
	return segments, nil
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP-date
// values are ignored; the backoff policy then computes its own delay.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
