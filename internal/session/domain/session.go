package domain

import "time"

// Session represents a signed-in identity. TenantID is the tenant resolved at
// sign-in time and may be empty for identities not yet provisioned.
type Session struct {
	ID               string
	IdentityID       string
	TenantID         string
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	LastSeenAt       *time.Time
	IPAddress        string
	RefreshJti       string // current refresh token jti for rotation; empty if not set
	RefreshTokenHash string // SHA-256 hash of current refresh token
	CreatedAt        time.Time
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
