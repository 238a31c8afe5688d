package sched

import (
	"context"
	"time"

	"elearn-entitlements/internal/usecase"

	"github.com/rs/zerolog"
)

// ExpiryWorker periodically downgrades snapshots whose subscription expiry
// has passed. Reads already downgrade lazily; the sweep keeps the table and
// the client caches from drifting for accounts nobody reads.
type ExpiryWorker struct {
	interval time.Duration
	entUC    usecase.EntitlementUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, entUC usecase.EntitlementUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		entUC:    entUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.entUC.SweepExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired entitlements downgraded")
			}
		}
	}
}
