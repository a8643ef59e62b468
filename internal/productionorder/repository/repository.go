package repository

import (
	"context"
	"errors"

	"erp-control-plane/internal/productionorder/domain"
)

// ErrOrderNumberTaken is returned by Create when the tenant already has an
// order with the same order number.
var ErrOrderNumberTaken = errors.New("order number already taken")

// Repository defines persistence for production orders. Every query is
// tenant-scoped; there is no cross-tenant read path.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Order, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Order, error)
	Create(ctx context.Context, o *domain.Order) error
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, tenantID, id string) error
}
