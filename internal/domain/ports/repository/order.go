package repository

import (
	"context"

	"github.com/Aadiprofessional/MatrixAI-Server3-sub000/internal/domain/model"
)

// OrderRepository appends purchase audit rows. Insert-only.
type OrderRepository interface {
	Insert(ctx context.Context, tx Tx, o *model.Order) error
}
