// File: internal/usecase/metadata_bridge.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
)

// MetadataBridge correlates gateway payment-intent ids with the purchase the
// internal system intended to fulfill. Records are time-boxed: after the TTL
// they read as not-found and are flipped to expired, so a late settlement
// notification can never reuse one.
type MetadataBridge struct {
	repo repository.PaymentMetadataRepository
	log  *zerolog.Logger
}

func NewMetadataBridge(repo repository.PaymentMetadataRepository, logger *zerolog.Logger) *MetadataBridge {
	l := logger.With().Str("component", "MetadataBridge").Logger()
	return &MetadataBridge{repo: repo, log: &l}
}

// Store creates the pending record for a freshly created payment intent.
// One purchase attempt per intent id: a duplicate is a conflict.
func (b *MetadataBridge) Store(ctx context.Context, intentID, uid string, plan model.PlanName, price int64, orderID, paymentMethod string) (*model.PurchaseMetadata, error) {
	m, err := model.NewPurchaseMetadata(intentID, uid, plan, price, orderID, paymentMethod, time.Now())
	if err != nil {
		return nil, err
	}
	if err := b.repo.Insert(ctx, nil, m); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewConflictError("purchase metadata for payment intent %s already exists", intentID)
		}
		return nil, err
	}
	return m, nil
}

// Get returns the live record for the intent, or domain.ErrNotFound when it
// is absent or past its TTL.
func (b *MetadataBridge) Get(ctx context.Context, intentID string) (*model.PurchaseMetadata, error) {
	return b.repo.FindLive(ctx, nil, intentID, time.Now())
}

// Advance moves the record's status forward, guarded on the current value.
// Metadata bookkeeping is best-effort relative to the audit ledger: a storage
// failure here is logged and reported as a missed transition, never as an
// error that would abort the surrounding purchase flow.
func (b *MetadataBridge) Advance(ctx context.Context, intentID string, from, to model.MetadataStatus) bool {
	ok, err := b.repo.TransitionStatus(ctx, nil, intentID, from, to)
	if err != nil {
		b.log.Warn().Err(err).
			Str("payment_intent_id", intentID).
			Str("from", string(from)).Str("to", string(to)).
			Msg("metadata status update failed")
		return false
	}
	return ok
}

// ListStalePending feeds the reconciler with live pending records older than
// the cutoff.
func (b *MetadataBridge) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.PurchaseMetadata, error) {
	return b.repo.ListPendingOlderThan(ctx, nil, olderThan, limit)
}
