package repository

import (
	"context"

	"erp-control-plane/internal/task/domain"
)

// Repository defines persistence for tasks. Every query is tenant-scoped;
// there is no cross-tenant read path.
type Repository interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Task, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, tenantID, id string) error
}
