package repository

import (
	"context"
	"time"

	"erp-control-plane/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByTenant(ctx context.Context, tenantID string, since time.Time, limit int) ([]*domain.AuditLog, error)
	ListByAction(ctx context.Context, action string, since time.Time, limit int) ([]*domain.AuditLog, error)
}
