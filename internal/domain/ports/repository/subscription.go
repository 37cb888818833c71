package repository

import (
	"context"
	"time"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
)

// SubscriptionRepository persists per-user entitlement state on the users
// table. All mutations are conditional writes so that racing callers converge
// without locks (two orchestrators on the same intent, overlapping engine
// runs).
type SubscriptionRepository interface {
	Find(ctx context.Context, tx Tx, uid string) (*model.SubscriptionState, error)

	// SavePlanState replaces the subscription columns for a user after a
	// non-addon purchase.
	SavePlanState(ctx context.Context, tx Tx, s *model.SubscriptionState) error

	// AddCoinsIfActive atomically adds addon coins, guarded on the row still
	// being active. Returns false when the guard did not match.
	AddCoinsIfActive(ctx context.Context, tx Tx, uid string, coins int64) (bool, error)

	// Bulk expiration passes. Each touches only rows matching its
	// precondition and reports the affected count; an immediate second run
	// matches zero rows.
	ExpireMonthlyDue(ctx context.Context, tx Tx, now time.Time) (int64, error)
	RefreshYearlyDue(ctx context.Context, tx Tx, now time.Time) (int64, error)
	ExpireYearlyDue(ctx context.Context, tx Tx, now time.Time) (int64, error)
	CleanupExpiredAddonCoins(ctx context.Context, tx Tx, now time.Time) (int64, error)
}
