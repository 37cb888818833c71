package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
)

var _ repository.PaymentMetadataRepository = (*metadataRepo)(nil)

type metadataRepo struct{ pool *pgxpool.Pool }

func NewMetadataRepo(pool *pgxpool.Pool) *metadataRepo {
	return &metadataRepo{pool: pool}
}

const metadataCols = `payment_intent_id, uid, plan, price, order_id, payment_method, status, created_at, expires_at`

func (r *metadataRepo) Insert(ctx context.Context, tx repository.Tx, m *model.PurchaseMetadata) error {
	const q = `
INSERT INTO payment_metadata (` + metadataCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (payment_intent_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, m.PaymentIntentID, m.UID, string(m.Plan), m.Price, m.OrderID, m.PaymentMethod, string(m.Status), m.CreatedAt, m.ExpiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// FindLive flips a stale record to expired before reporting not-found, so a
// late settlement notification can never reuse it.
func (r *metadataRepo) FindLive(ctx context.Context, tx repository.Tx, intentID string, now time.Time) (*model.PurchaseMetadata, error) {
	const expireQ = `
UPDATE payment_metadata
   SET status='expired'
 WHERE payment_intent_id=$1
   AND expires_at <= $2
   AND status IN ('pending','processing');`
	if _, err := execSQL(ctx, r.pool, tx, expireQ, intentID, now); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}

	const q = `SELECT ` + metadataCols + ` FROM payment_metadata WHERE payment_intent_id=$1 AND expires_at > $2;`
	row, err := pickRow(ctx, r.pool, tx, q, intentID, now)
	if err != nil {
		return nil, err
	}
	m, err := scanMetadata(row)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *metadataRepo) TransitionStatus(ctx context.Context, tx repository.Tx, intentID string, from, to model.MetadataStatus) (bool, error) {
	const q = `
UPDATE payment_metadata
   SET status=$3
 WHERE payment_intent_id=$1
   AND status=$2;`
	cmd, err := execSQL(ctx, r.pool, tx, q, intentID, string(from), string(to))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *metadataRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PurchaseMetadata, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + metadataCols + `
  FROM payment_metadata
 WHERE status='pending'
   AND created_at < $1
   AND expires_at > NOW()
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PurchaseMetadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanMetadata(row pgx.Row) (*model.PurchaseMetadata, error) {
	m := &model.PurchaseMetadata{}
	var plan, status string
	if err := row.Scan(&m.PaymentIntentID, &m.UID, &plan, &m.Price, &m.OrderID, &m.PaymentMethod, &status, &m.CreatedAt, &m.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m.Plan = model.PlanName(plan)
	m.Status = model.MetadataStatus(status)
	return m, nil
}
