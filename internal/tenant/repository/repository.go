package repository

import (
	"context"
	"errors"

	"erp-control-plane/internal/tenant/domain"
)

// ErrSubdomainTaken is returned by Create when the subdomain uniqueness
// constraint is violated. Callers use it to distinguish a duplicate-subdomain
// conflict from other database failures.
var ErrSubdomainTaken = errors.New("subdomain already taken")

// Repository defines persistence for tenants.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) error
	Update(ctx context.Context, t *domain.Tenant) error
	Delete(ctx context.Context, id string) error
}
