package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending purchase metadata
// and re-polls the gateway through the orchestrator. This covers settlement
// notifications that were lost or a process that crashed mid-settle; the
// orchestrator's idempotency makes re-polling safe.
type PaymentReconciler struct {
	purchaseUC usecase.PurchaseUseCase
	bridge     *usecase.MetadataBridge
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending record must be to re-poll
	log        *zerolog.Logger
}

func NewPaymentReconciler(purchaseUC usecase.PurchaseUseCase, bridge *usecase.MetadataBridge, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		purchaseUC: purchaseUC,
		bridge:     bridge,
		interval:   interval,
		staleAfter: staleAfter,
		log:        &l,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting payment reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.bridge.ListStalePending(ctx, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("listing stale pending metadata failed")
		return
	}
	for _, m := range pending {
		res, err := w.purchaseUC.GetStatus(ctx, m.PaymentIntentID)
		if err != nil {
			w.log.Warn().Err(err).Str("payment_intent_id", m.PaymentIntentID).
				Msg("reconcile poll failed")
			continue
		}
		if res.Applied || res.Order != nil {
			w.log.Info().Str("payment_intent_id", m.PaymentIntentID).
				Str("status", string(res.Status)).Msg("reconciled stale payment intent")
		}
	}
}
