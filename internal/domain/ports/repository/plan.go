package repository

import (
	"context"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
)

// SubscriptionPlanRepository reads the immutable plan catalog.
type SubscriptionPlanRepository interface {
	FindByName(ctx context.Context, tx Tx, name model.PlanName) (*model.PlanDefinition, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.PlanDefinition, error)
}
