package operator

import (
	"context"
	"errors"

	"sales-routing-backend/internal/model"
)

var (
	ErrNotFound      = errors.New("operator repository: not found")
	ErrAlreadyExists = errors.New("operator repository: already exists")
)

type Repository interface {
	Create(ctx context.Context, op model.OperatorItem) error
	GetByEmail(ctx context.Context, email string) (model.OperatorItem, error)
	List(ctx context.Context) ([]model.OperatorItem, error)
}
