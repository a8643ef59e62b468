package domain

import "time"

// Identity is a principal owned by the auth provider. It carries the credential
// and nothing else; tenant membership lives on the users table.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PasswordReset is a single-use, expiring reset token record. Only the token
// hash is stored; the raw token is handed to the caller once.
type PasswordReset struct {
	TokenHash  string
	IdentityID string
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}
