package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"erp-control-plane/internal/productionorder/domain"
)

// Postgres class 23505.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a production order repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = "id, tenant_id, order_number, product_sku, quantity, due_date, status, created_by, created_at, updated_at"

// GetByID returns the order for (tenantID, id), or nil if not found. An order
// belonging to another tenant is indistinguishable from a missing one.
func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM production_orders WHERE tenant_id = $1 AND id = $2", tenantID, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// ListByTenant returns the tenant's orders, newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM production_orders WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Create persists the order. Returns ErrOrderNumberTaken when the tenant
// already uses the order number.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Order) error {
	due := sql.NullTime{}
	if o.DueDate != nil {
		due = sql.NullTime{Time: *o.DueDate, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO production_orders (id, tenant_id, order_number, product_sku, quantity, due_date, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.TenantID, o.OrderNumber, o.ProductSKU, o.Quantity, due, string(o.Status), o.CreatedBy, o.CreatedAt, o.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrOrderNumberTaken
	}
	return err
}

// Update rewrites the order's mutable fields within its tenant.
func (r *PostgresRepository) Update(ctx context.Context, o *domain.Order) error {
	due := sql.NullTime{}
	if o.DueDate != nil {
		due = sql.NullTime{Time: *o.DueDate, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE production_orders SET product_sku = $3, quantity = $4, due_date = $5, status = $6, updated_at = $7
		 WHERE tenant_id = $1 AND id = $2`,
		o.TenantID, o.ID, o.ProductSKU, o.Quantity, due, string(o.Status), o.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("production order not found")
	}
	return nil
}

// Delete removes the order. Deleting a missing order is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID, id string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM production_orders WHERE tenant_id = $1 AND id = $2", tenantID, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var due sql.NullTime
	if err := row.Scan(&o.ID, &o.TenantID, &o.OrderNumber, &o.ProductSKU, &o.Quantity, &due,
		&o.Status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if due.Valid {
		o.DueDate = &due.Time
	}
	return &o, nil
}
