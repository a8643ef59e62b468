package repository

import (
	"context"

	"erp-control-plane/internal/identity/domain"
)

// Repository defines persistence for identities and password resets.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	Delete(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	CreatePasswordReset(ctx context.Context, r *domain.PasswordReset) error
	GetPasswordReset(ctx context.Context, tokenHash string) (*domain.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, tokenHash string) error
}
