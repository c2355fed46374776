package database

import "context"

// schema bootstraps the transcripts table. The unique key on video_id is
// what resolves the concurrent-persist race: the first writer wins and
// everyone else re-reads.
const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	video_id   text PRIMARY KEY,
	transcript jsonb NOT NULL,
	source     text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts (created_at);
`

// EnsureSchema creates the schema if it does not exist. Idempotent.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, schema)
	return err
}
