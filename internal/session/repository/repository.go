// Package repository persists refresh sessions. Only token digests are
// stored; see the security package for the hashing scheme.
package repository

import (
	"context"
	"time"

	"erp-control-plane/internal/session/domain"
)

// Repository is the session store. Lookups return (nil, nil) when the session
// does not exist.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByIdentity(ctx context.Context, identityID string) ([]*domain.Session, error)
	UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByIdentity(ctx context.Context, identityID string) error
}
