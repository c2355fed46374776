package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/reelnotes/scribed/internal/transcript"
)

// Record is the persisted transcript row.
type Record struct {
	VideoID    string                `json:"video_id"`
	Transcript transcript.Transcript `json:"transcript"`
	Source     string                `json:"source"` // "captions" or "whisper"
	CreatedAt  time.Time             `json:"created_at"`
}

// GetTranscript returns the persisted transcript for a video id.
func (db *DB) GetTranscript(ctx context.Context, videoID string) (transcript.Transcript, bool, error) {
	var raw []byte
	err := db.Pool.QueryRow(ctx, `
		SELECT transcript FROM transcripts WHERE video_id = $1
	`, videoID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get transcript: %w", err)
	}

	var t transcript.Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false, fmt.Errorf("decode transcript %s: %w", videoID, err)
	}
	return t, true, nil
}

// PutTranscript persists a transcript with first-writer-wins semantics. A
// uniqueness conflict is not an error: the local value is discarded and the
// winning record is returned instead, with inserted=false.
func (db *DB) PutTranscript(ctx context.Context, videoID string, t transcript.Transcript, source string) (transcript.Transcript, bool, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, false, fmt.Errorf("encode transcript: %w", err)
	}

	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO transcripts (video_id, transcript, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (video_id) DO NOTHING
	`, videoID, raw, source)
	if err != nil {
		return nil, false, fmt.Errorf("insert transcript: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return t, true, nil
	}

	// A concurrent caller won the race; re-read its record.
	winner, ok, err := db.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		// Winner expired between conflict and re-read; extremely unlikely,
		// treat our copy as authoritative for this caller.
		return t, false, nil
	}
	return winner, false, nil
}

// DeleteTranscript removes a persisted transcript, forcing re-resolution on
// the next request.
func (db *DB) DeleteTranscript(ctx context.Context, videoID string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM transcripts WHERE video_id = $1`, videoID)
	return err
}

// PurgeExpired removes records older than the retention window.
func (db *DB) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM transcripts WHERE created_at < now() - make_interval(secs => $1)
	`, retention.Seconds())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
