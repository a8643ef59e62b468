package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"erp-control-plane/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = "id, identity_id, tenant_id, expires_at, revoked_at, last_seen_at, ip_address, refresh_jti, refresh_token_hash, created_at"

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByIdentity returns all sessions for the identity, newest first.
func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE identity_id = $1 ORDER BY created_at DESC",
		identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	tenantID := sql.NullString{String: s.TenantID, Valid: s.TenantID != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, identity_id, tenant_id, expires_at, ip_address, refresh_jti, refresh_token_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.IdentityID, tenantID, s.ExpiresAt, s.IPAddress, s.RefreshJti, s.RefreshTokenHash, s.CreatedAt)
	return err
}

// Revoke stamps the session revoked. Revoking a missing or revoked session is not an error.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL", id)
	return err
}

// RevokeAllByIdentity revokes every active session for the identity.
func (r *PostgresRepository) RevokeAllByIdentity(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = now() WHERE identity_id = $1 AND revoked_at IS NULL", identityID)
	return err
}

// UpdateLastSeen records session activity.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_seen_at = $2 WHERE id = $1", id, at)
	return err
}

// UpdateRefreshToken binds the session to a rotated refresh token.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET refresh_jti = $2, refresh_token_hash = $3 WHERE id = $1",
		sessionID, jti, refreshTokenHash)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var tenantID sql.NullString
	var revokedAt, lastSeenAt sql.NullTime
	if err := row.Scan(&s.ID, &s.IdentityID, &tenantID, &s.ExpiresAt, &revokedAt, &lastSeenAt,
		&s.IPAddress, &s.RefreshJti, &s.RefreshTokenHash, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.TenantID = tenantID.String
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	if lastSeenAt.Valid {
		s.LastSeenAt = &lastSeenAt.Time
	}
	return &s, nil
}
