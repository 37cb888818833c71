// File: internal/usecase/expiry_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/infra/metrics"
)

// ExpiryReport aggregates the per-pass affected counts of one engine run.
// Callers use it for observability, not for correctness decisions.
type ExpiryReport struct {
	MonthlyExpired    int64         `json:"monthlyExpired"`
	YearlyRefreshed   int64         `json:"yearlyRefreshed"`
	YearlyExpired     int64         `json:"yearlyExpired"`
	AddonCoinsCleared int64         `json:"addonCoinsCleared"`
	Duration          time.Duration `json:"durationMs"`
}

// ExpiryUseCase is the batch expiration/refresh engine. Each of its four
// passes is a conditional bulk update: only rows matching the precondition
// are touched, so overlapping runs converge without locks and re-evaluation
// is always safe.
type ExpiryUseCase struct {
	subs repository.SubscriptionRepository
	tm   repository.TransactionManager // optional; nil runs passes on the pool
	log  *zerolog.Logger
}

func NewExpiryUseCase(subs repository.SubscriptionRepository, tm repository.TransactionManager, logger *zerolog.Logger) *ExpiryUseCase {
	l := logger.With().Str("component", "ExpiryUC").Logger()
	return &ExpiryUseCase{subs: subs, tm: tm, log: &l}
}

// Run executes the four passes. A pass failure is reported but does not
// block the remaining passes; committed passes are never rolled back.
func (uc *ExpiryUseCase) Run(ctx context.Context) (*ExpiryReport, error) {
	start := time.Now()
	now := start
	report := &ExpiryReport{}
	var errs []error

	passes := []struct {
		name string
		run  func(context.Context, repository.Tx, time.Time) (int64, error)
		dst  *int64
	}{
		{"monthly_expiry", uc.subs.ExpireMonthlyDue, &report.MonthlyExpired},
		{"yearly_refresh", uc.subs.RefreshYearlyDue, &report.YearlyRefreshed},
		{"yearly_expiry", uc.subs.ExpireYearlyDue, &report.YearlyExpired},
		{"addon_cleanup", uc.subs.CleanupExpiredAddonCoins, &report.AddonCoinsCleared},
	}
	for _, p := range passes {
		n, err := uc.runPass(ctx, p.run, now)
		if err != nil {
			uc.log.Error().Err(err).Str("pass", p.name).Msg("expiration pass failed")
			errs = append(errs, err)
			continue
		}
		*p.dst = n
		metrics.AddExpiryPassRows(p.name, n)
		if n > 0 {
			uc.log.Info().Str("pass", p.name).Int64("rows", n).Msg("expiration pass applied")
		}
	}

	report.Duration = time.Since(start)
	metrics.ObserveExpiryRun(report.Duration)
	return report, errors.Join(errs...)
}

// runPass commits each pass independently: a later failure never rolls back
// an earlier pass.
func (uc *ExpiryUseCase) runPass(ctx context.Context, run func(context.Context, repository.Tx, time.Time) (int64, error), now time.Time) (int64, error) {
	if uc.tm == nil {
		return run(ctx, nil, now)
	}
	var n int64
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		n, err = run(ctx, tx, now)
		return err
	})
	return n, err
}
