package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/reelnotes/scribed/internal/acquire"
	"github.com/reelnotes/scribed/internal/fault"
	"github.com/reelnotes/scribed/internal/transcript"
)

// Resolver produces a transcript for a video id. A nil transcript with a nil
// error means the transcript is unavailable.
type Resolver interface {
	Resolve(ctx context.Context, videoID string) (transcript.Transcript, error)
}

// TranscriptDeleter removes a persisted transcript.
type TranscriptDeleter interface {
	DeleteTranscript(ctx context.Context, videoID string) error
}

type TranscriptHandler struct {
	resolver Resolver
	deleter  TranscriptDeleter
}

func NewTranscriptHandler(resolver Resolver, deleter TranscriptDeleter) *TranscriptHandler {
	return &TranscriptHandler{resolver: resolver, deleter: deleter}
}

// TranscriptResponse is the resolved transcript payload.
type TranscriptResponse struct {
	VideoID    string                `json:"video_id"`
	Transcript transcript.Transcript `json:"transcript"`
	Text       string                `json:"text"`
}

// Get resolves and returns the transcript for a video id.
func (h *TranscriptHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, err := acquire.ParseWatchURL(chi.URLParam(r, "videoID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid video id")
		return
	}

	t, err := h.resolver.Resolve(r.Context(), videoID)
	if err != nil {
		status, msg := faultStatus(err)
		hlog.FromRequest(r).Warn().
			Str("video_id", videoID).
			Str("class", fault.ClassOf(err).String()).
			Err(err).
			Msg("transcript resolution failed")
		WriteErrorDetail(w, status, msg, err.Error())
		return
	}
	if t == nil {
		WriteError(w, http.StatusNotFound, "transcript unavailable")
		return
	}

	WriteJSON(w, http.StatusOK, TranscriptResponse{
		VideoID:    videoID,
		Transcript: t,
		Text:       t.Text(),
	})
}

// Delete removes the persisted transcript so the next request re-resolves.
func (h *TranscriptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	videoID, err := acquire.ParseWatchURL(chi.URLParam(r, "videoID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid video id")
		return
	}

	if err := h.deleter.DeleteTranscript(r.Context(), videoID); err != nil {
		WriteError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// faultStatus maps a classified pipeline fault to an HTTP status.
func faultStatus(err error) (int, string) {
	switch fault.ClassOf(err) {
	case fault.InvalidInput:
		return http.StatusBadRequest, "invalid video id"
	case fault.NotFound:
		return http.StatusNotFound, "transcript not found"
	case fault.UnavailableContent:
		return http.StatusGone, "source content unavailable"
	case fault.IntegrityFailure:
		return http.StatusBadGateway, "source media failed verification"
	case fault.Throttled, fault.Timeout:
		return http.StatusServiceUnavailable, "upstream temporarily unavailable"
	default:
		return http.StatusInternalServerError, "transcript resolution failed"
	}
}
