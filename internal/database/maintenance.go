package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor purges expired transcript records on a daily schedule. It runs
// once immediately on Start, then every 24 hours.
type Janitor struct {
	db        *DB
	retention time.Duration
	log       zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewJanitor(db *DB, retention time.Duration, log zerolog.Logger) *Janitor {
	return &Janitor{
		db:        db,
		retention: retention,
		log:       log.With().Str("component", "janitor").Logger(),
		done:      make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel

	go func() {
		defer close(j.done)
		j.run(ctx)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.run(ctx)
			}
		}
	}()
	j.log.Info().Dur("retention", j.retention).Msg("retention janitor started")
}

func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
		<-j.done
	}
}

func (j *Janitor) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := j.db.PurgeExpired(ctx, j.retention)
	if err != nil {
		j.log.Warn().Err(err).Msg("retention purge failed")
		return
	}
	if n > 0 {
		j.log.Info().Int64("deleted", n).Msg("purged expired transcripts")
	}
}
