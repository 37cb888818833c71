package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/ports/repository"
)

var _ repository.SubscriptionPlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) FindByName(ctx context.Context, tx repository.Tx, name model.PlanName) (*model.PlanDefinition, error) {
	const q = `SELECT plan_name, coins, plan_period, price, created_at FROM subscription_plans WHERE plan_name=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, string(name))
	if err != nil {
		return nil, err
	}
	p := &model.PlanDefinition{}
	if err := row.Scan(&p.Name, &p.Coins, &p.PeriodSeconds, &p.Price, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *planRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.PlanDefinition, error) {
	const q = `SELECT plan_name, coins, plan_period, price, created_at FROM subscription_plans ORDER BY plan_name;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PlanDefinition
	for rows.Next() {
		p := &model.PlanDefinition{}
		if err := rows.Scan(&p.Name, &p.Coins, &p.PeriodSeconds, &p.Price, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
