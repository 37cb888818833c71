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

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

// subscriptionRepo persists SubscriptionState on the users table. Every
// mutation here is a conditional write: the WHERE clause carries the
// precondition, so racing writers converge without row locks.
type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionCols = `uid, subscription_active, user_plan, user_coins, plan_valid_till, coins_expiry, next_coin_refresh, plan_purchased_at`

func (r *subscriptionRepo) Find(ctx context.Context, tx repository.Tx, uid string) (*model.SubscriptionState, error) {
	q := `SELECT ` + subscriptionCols + ` FROM users WHERE uid=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, uid)
	if err != nil {
		return nil, err
	}

	s := &model.SubscriptionState{}
	var plan *string
	if err := row.Scan(&s.UID, &s.Active, &plan, &s.CoinBalance, &s.PlanExpiryAt, &s.CoinsExpiryAt, &s.NextCoinRefreshAt, &s.PurchasedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if plan != nil {
		p := model.PlanName(*plan)
		s.Plan = &p
	}
	return s, nil
}

func (r *subscriptionRepo) SavePlanState(ctx context.Context, tx repository.Tx, s *model.SubscriptionState) error {
	const q = `
UPDATE users
   SET subscription_active=$2,
       user_plan=$3,
       user_coins=$4,
       plan_valid_till=$5,
       coins_expiry=$6,
       next_coin_refresh=$7,
       plan_purchased_at=$8
 WHERE uid=$1;`

	var plan *string
	if s.Plan != nil {
		v := string(*s.Plan)
		plan = &v
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, s.UID, s.Active, plan, s.CoinBalance, s.PlanExpiryAt, s.CoinsExpiryAt, s.NextCoinRefreshAt, s.PurchasedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) AddCoinsIfActive(ctx context.Context, tx repository.Tx, uid string, coins int64) (bool, error) {
	const q = `
UPDATE users
   SET user_coins = user_coins + $2
 WHERE uid=$1
   AND subscription_active;`

	cmd, err := execSQL(ctx, r.pool, tx, q, uid, coins)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// ExpireMonthlyDue clears Monthly/Tester users whose plan window has passed.
func (r *subscriptionRepo) ExpireMonthlyDue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `
UPDATE users
   SET subscription_active=FALSE,
       user_plan=NULL,
       user_coins=0,
       plan_valid_till=NULL,
       coins_expiry=NULL,
       next_coin_refresh=NULL
 WHERE subscription_active
   AND user_plan IN ('Monthly','Tester')
   AND plan_valid_till <= $1;`
	return r.bulk(ctx, tx, q, now)
}

// RefreshYearlyDue resets the coin balance of Yearly users whose refresh is
// due but whose plan is still running. The plan_valid_till guard lets final
// expiry supersede a simultaneously due refresh.
func (r *subscriptionRepo) RefreshYearlyDue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `
UPDATE users u
   SET user_coins = p.coins,
       coins_expiry = $1::timestamptz + INTERVAL '30 days',
       next_coin_refresh = $1::timestamptz + INTERVAL '30 days'
  FROM subscription_plans p
 WHERE p.plan_name = u.user_plan
   AND u.subscription_active
   AND u.user_plan = 'Yearly'
   AND u.next_coin_refresh <= $1
   AND u.plan_valid_till > $1;`
	return r.bulk(ctx, tx, q, now)
}

func (r *subscriptionRepo) ExpireYearlyDue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `
UPDATE users
   SET subscription_active=FALSE,
       user_plan=NULL,
       user_coins=0,
       plan_valid_till=NULL,
       coins_expiry=NULL,
       next_coin_refresh=NULL
 WHERE subscription_active
   AND user_plan = 'Yearly'
   AND plan_valid_till <= $1;`
	return r.bulk(ctx, tx, q, now)
}

// CleanupExpiredAddonCoins zeroes addon coins left behind by an already
// expired plan. coins_expiry is also cleared so a rerun matches zero rows.
func (r *subscriptionRepo) CleanupExpiredAddonCoins(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `
UPDATE users
   SET user_coins = 0,
       coins_expiry = NULL
 WHERE NOT subscription_active
   AND coins_expiry <= $1;`
	return r.bulk(ctx, tx, q, now)
}

func (r *subscriptionRepo) bulk(ctx context.Context, tx repository.Tx, q string, now time.Time) (int64, error) {
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
