package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"erp-control-plane/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = "id, tenant_id, email, first_name, last_name, role, status, last_login, created_at, updated_at"

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

// Create persists the user. The user must have ID set (the identity id); it is
// not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	tenantID := sql.NullString{String: u.TenantID, Valid: u.TenantID != ""}
	firstName := sql.NullString{String: u.FirstName, Valid: u.FirstName != ""}
	lastName := sql.NullString{String: u.LastName, Valid: u.LastName != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, tenant_id, email, first_name, last_name, role, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, tenantID, u.Email, firstName, lastName, string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt)
	return err
}

// Delete removes the user row. Used by saga compensation; deleting a missing
// row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	return err
}

// LinkTenant sets tenant_id, names, and role on the row keyed by id. Returns an
// error when no row was updated: a missing membership row must fail the
// provisioning step, not silently succeed.
func (r *PostgresRepository) LinkTenant(ctx context.Context, id, tenantID, firstName, lastName string, role domain.Role) error {
	fn := sql.NullString{String: firstName, Valid: firstName != ""}
	ln := sql.NullString{String: lastName, Valid: lastName != ""}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET tenant_id = $2, first_name = $3, last_name = $4, role = $5, updated_at = now()
		 WHERE id = $1`,
		id, tenantID, fn, ln, string(role))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("user row not found")
	}
	return nil
}

// UpdateProfile updates display fields only; role and tenant are never touched here.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, firstName, lastName string) error {
	fn := sql.NullString{String: firstName, Valid: firstName != ""}
	ln := sql.NullString{String: lastName, Valid: lastName != ""}
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET first_name = $2, last_name = $3, updated_at = now() WHERE id = $1",
		id, fn, ln)
	return err
}

// RecordLogin stamps last_login.
func (r *PostgresRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET last_login = $2 WHERE id = $1", id, at)
	return err
}

// ListUnlinkedBefore returns users whose tenant_id is still null and whose row
// is older than cutoff, oldest first.
func (r *PostgresRepository) ListUnlinkedBefore(ctx context.Context, cutoff time.Time) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE tenant_id IS NULL AND created_at < $1 ORDER BY created_at",
		cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u, err := scanUserRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRows(row rowScanner) (*domain.User, error) {
	var u domain.User
	var tenantID, firstName, lastName sql.NullString
	var role, status string
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &tenantID, &u.Email, &firstName, &lastName, &role, &status,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.TenantID = tenantID.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.Role = domain.Role(role)
	u.Status = domain.UserStatus(status)
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}
