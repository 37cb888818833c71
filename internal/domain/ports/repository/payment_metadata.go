package repository

import (
	"context"
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
)

// PaymentMetadataRepository stores the short-lived purchase correlation
// records keyed by gateway payment-intent id.
type PaymentMetadataRepository interface {
	// Insert creates a pending record; domain.ErrAlreadyExists when a record
	// for the intent id is already present.
	Insert(ctx context.Context, tx Tx, m *model.PurchaseMetadata) error

	// FindLive returns the record if it has not passed its TTL at `now`.
	// A stale record is flipped to expired as a side effect and reported as
	// domain.ErrNotFound so late settlement notifications can never reuse it.
	FindLive(ctx context.Context, tx Tx, intentID string, now time.Time) (*model.PurchaseMetadata, error)

	// TransitionStatus moves status from->to only when the current value
	// still equals `from`. Returns false when the guard did not match.
	TransitionStatus(ctx context.Context, tx Tx, intentID string, from, to model.MetadataStatus) (bool, error)

	// ListPendingOlderThan feeds the reconciler: live pending records created
	// before the cutoff, oldest first.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PurchaseMetadata, error)
}
