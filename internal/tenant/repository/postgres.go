package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"erp-control-plane/internal/tenant/domain"
)

// Postgres class 23505.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tenantColumns = "id, name, subdomain, status, subscription_plan, created_at, updated_at"

// GetByID returns the tenant for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = $1", id)
	return scanTenant(row)
}

// GetBySubdomain returns the active tenant with the given subdomain, or nil if
// not found. Suspended tenants are not returned; host-based resolution must not
// route into a suspended tenant.
func (r *PostgresRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE subdomain = $1 AND status = $2",
		subdomain, string(domain.TenantStatusActive))
	return scanTenant(row)
}

// Create persists the tenant. Returns ErrSubdomainTaken when the subdomain is
// already in use; the storage-layer constraint is the only consistency backstop
// for racing provisioning runs.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, subdomain, status, subscription_plan, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Subdomain, string(t.Status), t.SubscriptionPlan, t.CreatedAt, t.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSubdomainTaken
	}
	return err
}

// Update updates the existing tenant record.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET name = $2, status = $3, subscription_plan = $4, updated_at = now() WHERE id = $1",
		t.ID, t.Name, string(t.Status), t.SubscriptionPlan)
	return err
}

// Delete removes the tenant row. Used by saga compensation; deleting a missing
// row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", id)
	return err
}

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var status string
	if err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &status, &t.SubscriptionPlan, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Status = domain.TenantStatus(status)
	return &t, nil
}
