package repository

import (
	"context"
	"database/sql"
	"errors"

	"erp-control-plane/internal/task/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a task repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const taskColumns = "id, tenant_id, title, description, priority, status, assignee_id, created_by, created_at, updated_at"

// GetByID returns the task for (tenantID, id), or nil if not found. A task
// belonging to another tenant is indistinguishable from a missing one.
func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE tenant_id = $1 AND id = $2", tenantID, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListByTenant returns the tenant's tasks, newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create persists the task. The task must have ID and TenantID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Task) error {
	assignee := sql.NullString{String: t.AssigneeID, Valid: t.AssigneeID != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, tenant_id, title, description, priority, status, assignee_id, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.TenantID, t.Title, t.Description, t.Priority, t.Status, assignee, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

// Update rewrites the task's mutable fields within its tenant.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Task) error {
	assignee := sql.NullString{String: t.AssigneeID, Valid: t.AssigneeID != ""}
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $3, description = $4, priority = $5, status = $6, assignee_id = $7, updated_at = $8
		 WHERE tenant_id = $1 AND id = $2`,
		t.TenantID, t.ID, t.Title, t.Description, t.Priority, t.Status, assignee, t.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("task not found")
	}
	return nil
}

// Delete removes the task. Deleting a missing task is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID, id string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE tenant_id = $1 AND id = $2", tenantID, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var assignee sql.NullString
	if err := row.Scan(&t.ID, &t.TenantID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&assignee, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.AssigneeID = assignee.String
	return &t, nil
}
