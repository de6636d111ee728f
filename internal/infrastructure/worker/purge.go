package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger removes idempotency records older than retention.
type Purger interface {
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// IdempotencyPurger periodically deletes expired idempotency records.
type IdempotencyPurger struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	logger    zerolog.Logger
}

// NewIdempotencyPurger creates a purge worker.
func NewIdempotencyPurger(purger Purger, retention, interval time.Duration, logger zerolog.Logger) *IdempotencyPurger {
	if interval <= 0 {
		interval = time.Hour
	}
	return &IdempotencyPurger{
		purger:    purger,
		retention: retention,
		interval:  interval,
		logger:    logger.With().Str("component", "idempotency_purger").Logger(),
	}
}

// Start purges once, then on every tick until ctx is cancelled.
func (w *IdempotencyPurger) Start(ctx context.Context) error {
	w.logger.Info().
		Dur("retention", w.retention).
		Dur("interval", w.interval).
		Msg("idempotency purger started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.purge(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("idempotency purger shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *IdempotencyPurger) purge(ctx context.Context) {
	n, err := w.purger.PurgeExpired(ctx, w.retention)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to purge idempotency records")
		return
	}
	if n > 0 {
		w.logger.Info().Int64("deleted", n).Msg("purged idempotency records")
	}
}
