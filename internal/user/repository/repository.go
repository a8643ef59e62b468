package repository

import (
	"context"
	"time"

	"erp-control-plane/internal/user/domain"
)

// Repository defines persistence for tenant membership records.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id string) error
	// LinkTenant sets tenant_id, names, and role on the row keyed by id.
	// The row must already exist (created alongside the identity).
	LinkTenant(ctx context.Context, id, tenantID, firstName, lastName string, role domain.Role) error
	UpdateProfile(ctx context.Context, id, firstName, lastName string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	// ListUnlinkedBefore returns users whose tenant_id is still null and whose
	// row is older than cutoff. These are provisioning orphans.
	ListUnlinkedBefore(ctx context.Context, cutoff time.Time) ([]*domain.User, error)
}
