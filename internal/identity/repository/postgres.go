package repository

import (
	"context"
	"database/sql"
	"errors"

	"erp-control-plane/internal/identity/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an identity repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const identityColumns = "id, email, password_hash, created_at, updated_at"

// GetByID returns the identity for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE id = $1", id)
	return scanIdentity(row)
}

// GetByEmail returns the identity with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+identityColumns+" FROM identities WHERE email = $1", email)
	return scanIdentity(row)
}

// Create persists the identity. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO identities (id, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		i.ID, i.Email, i.PasswordHash, i.CreatedAt, i.UpdatedAt)
	return err
}

// Delete removes the identity row. Deleting a missing row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM identities WHERE id = $1", id)
	return err
}

// UpdatePasswordHash replaces the stored credential for the identity.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE identities SET password_hash = $2, updated_at = now() WHERE id = $1",
		id, passwordHash)
	return err
}

// CreatePasswordReset persists a reset token record.
func (r *PostgresRepository) CreatePasswordReset(ctx context.Context, p *domain.PasswordReset) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO password_resets (token_hash, identity_id, expires_at, created_at) VALUES ($1, $2, $3, $4)",
		p.TokenHash, p.IdentityID, p.ExpiresAt, p.CreatedAt)
	return err
}

// GetPasswordReset returns the reset record for tokenHash, or nil if not found.
func (r *PostgresRepository) GetPasswordReset(ctx context.Context, tokenHash string) (*domain.PasswordReset, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT token_hash, identity_id, expires_at, used_at, created_at FROM password_resets WHERE token_hash = $1",
		tokenHash)
	var p domain.PasswordReset
	var usedAt sql.NullTime
	if err := row.Scan(&p.TokenHash, &p.IdentityID, &p.ExpiresAt, &usedAt, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if usedAt.Valid {
		p.UsedAt = &usedAt.Time
	}
	return &p, nil
}

// MarkPasswordResetUsed stamps the reset record as consumed.
func (r *PostgresRepository) MarkPasswordResetUsed(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE password_resets SET used_at = now() WHERE token_hash = $1", tokenHash)
	return err
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var i domain.Identity
	if err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt, &i.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}
