package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/usecase"
)

// ExpiryWorker periodically runs the expiration/refresh engine. Cadence is an
// operational parameter: every pass is idempotent, so re-evaluation is safe.
type ExpiryWorker struct {
	interval time.Duration
	expiryUC *usecase.ExpiryUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, expiryUC *usecase.ExpiryUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{interval: interval, expiryUC: expiryUC, log: &l}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			report, err := w.expiryUC.Run(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiration run reported errors")
			}
			if report != nil {
				total := report.MonthlyExpired + report.YearlyRefreshed + report.YearlyExpired + report.AddonCoinsCleared
				if total > 0 {
					w.log.Info().
						Int64("monthly_expired", report.MonthlyExpired).
						Int64("yearly_refreshed", report.YearlyRefreshed).
						Int64("yearly_expired", report.YearlyExpired).
						Int64("addon_coins_cleared", report.AddonCoinsCleared).
						Dur("duration", report.Duration).
						Msg("expiration run applied changes")
				}
			}
		}
	}
}
