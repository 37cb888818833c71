package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

// orderRepo appends to user_order, the append-only audit ledger. There is
// deliberately no update path.
type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) Insert(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO user_order (
  id, uid, plan, price, coins_added, payment_intent_id, order_id, status, payment_status, error_message, error_code, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := execSQL(ctx, r.pool, tx, q,
		o.ID, o.UID, string(o.Plan), o.Price, o.CoinsAdded, o.PaymentIntentID, o.OrderID,
		string(o.Status), string(o.PaymentStatus), o.ErrorMessage, o.ErrorCode, o.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
