// Package service implements the auth provider boundary: identity lifecycle,
// password sign-in with JWT sessions, token introspection, and password resets.
// Callers outside this package treat identities as opaque; tenant membership is
// owned by the user repository and only stitched in here at sign-in time.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	identitydomain "erp-control-plane/internal/identity/domain"
	"erp-control-plane/internal/security"
	sessiondomain "erp-control-plane/internal/session/domain"
	userdomain "erp-control-plane/internal/user/domain"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse      = errors.New("refresh token reuse detected; all sessions revoked")
	ErrInvalidResetToken      = errors.New("invalid or expired reset token")
	ErrSessionRevoked         = errors.New("session revoked or expired")
	ErrSessionNotFound        = errors.New("session not found")
)

const resetTokenTTL = time.Hour

// AuthResult holds the outcome of SignIn or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	IdentityID   string
	TenantID     string
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*identitydomain.Identity, error)
	Create(ctx context.Context, i *identitydomain.Identity) error
	Delete(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	CreatePasswordReset(ctx context.Context, r *identitydomain.PasswordReset) error
	GetPasswordReset(ctx context.Context, tokenHash string) (*identitydomain.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, tokenHash string) error
}

// UserRepo is the minimal user repository needed by the auth service. The
// provider creates and removes the membership stub row alongside the identity,
// the way a hosted auth service materializes a profile row on signup.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	Delete(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListByIdentity(ctx context.Context, identityID string) ([]*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByIdentity(ctx context.Context, identityID string) error
	UpdateRefreshToken(ctx context.Context, sessionID, jti, refreshTokenHash string) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}

// AuthService implements identity create/delete, sign-in, refresh, sign-out,
// introspection, and password updates/resets.
type AuthService struct {
	identityRepo      IdentityRepo
	userRepo          UserRepo
	sessionRepo       SessionRepo
	hasher            *security.Hasher
	tokens            *security.TokenProvider
	passwordMinLength int
	refreshTTL        time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	identityRepo IdentityRepo,
	userRepo UserRepo,
	sessionRepo SessionRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	passwordMinLength int,
	refreshTTL time.Duration,
) *AuthService {
	if passwordMinLength < 1 {
		passwordMinLength = 6
	}
	return &AuthService{
		identityRepo:      identityRepo,
		userRepo:          userRepo,
		sessionRepo:       sessionRepo,
		hasher:            hasher,
		tokens:            tokens,
		passwordMinLength: passwordMinLength,
		refreshTTL:        refreshTTL,
	}
}

// CreateIdentity creates an identity with the given email and password, plus
// the unlinked membership stub row keyed by the same id. The stub's tenant_id
// stays null until provisioning links it.
func (s *AuthService) CreateIdentity(ctx context.Context, email, password string) (*identitydomain.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ident := &identitydomain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.identityRepo.Create(ctx, ident); err != nil {
		return nil, err
	}
	stub := &userdomain.User{
		ID:        ident.ID,
		Email:     email,
		Role:      userdomain.RoleMember,
		Status:    userdomain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, stub); err != nil {
		// Roll the identity back so a half-created principal cannot sign in.
		if delErr := s.identityRepo.Delete(ctx, ident.ID); delErr != nil {
			return nil, fmt.Errorf("create user stub: %w (identity cleanup also failed: %v)", err, delErr)
		}
		return nil, err
	}
	return ident, nil
}

// DeleteIdentity removes the identity, its sessions, and its membership stub.
// Used by saga compensation; deleting an already-deleted identity is not an error.
func (s *AuthService) DeleteIdentity(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("identity id is required")
	}
	if err := s.sessionRepo.RevokeAllByIdentity(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	return s.identityRepo.Delete(ctx, id)
}

// SignIn authenticates with email/password, creates a session, and returns
// tokens. The session and claims carry the tenant resolved from the membership
// row; an unprovisioned identity signs in with an empty tenant.
func (s *AuthService) SignIn(ctx context.Context, email, password, ip string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	tenantID := ""
	u, err := s.userRepo.GetByID(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		if u.Status != userdomain.UserStatusActive {
			return nil, ErrInvalidCredentials
		}
		tenantID = u.TenantID
	}

	sessionID := uuid.New().String()
	now := time.Now().UTC()
	refreshToken, jti, _, err := s.tokens.IssueRefresh(sessionID, ident.ID, tenantID)
	if err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sessionID, ident.ID, tenantID)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:               sessionID,
		IdentityID:       ident.ID,
		TenantID:         tenantID,
		ExpiresAt:        now.Add(s.refreshTTL),
		IPAddress:        ip,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		CreatedAt:        now,
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}
	_ = s.userRepo.RecordLogin(ctx, ident.ID, now)
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
		IdentityID:   ident.ID,
		TenantID:     tenantID,
	}, nil
}

// Refresh validates the refresh token, rotates it, and returns new tokens.
// Presenting a stale jti for a live session revokes every session of that
// identity (reuse detection).
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	sessionID, jti, identityID, tenantID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.RevokedAt != nil {
		return nil, ErrInvalidRefreshToken
	}
	if sess.RefreshJti != jti {
		_ = s.sessionRepo.RevokeAllByIdentity(ctx, identityID)
		return nil, ErrRefreshTokenReuse
	}
	if sess.RefreshTokenHash != "" && !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}
	now := time.Now().UTC()
	_ = s.sessionRepo.UpdateLastSeen(ctx, sessionID, now)
	newRefresh, newJti, _, err := s.tokens.IssueRefresh(sessionID, identityID, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.UpdateRefreshToken(ctx, sessionID, newJti, security.HashRefreshToken(newRefresh)); err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := s.tokens.IssueAccess(sessionID, identityID, tenantID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    accessExp,
		IdentityID:   identityID,
		TenantID:     tenantID,
	}, nil
}

// SignOut revokes the session identified by the refresh token, or by sessionID
// when refreshToken is empty (the bearer middleware supplies it). No-op when
// neither resolves to a session.
func (s *AuthService) SignOut(ctx context.Context, refreshToken, sessionID string) error {
	if refreshToken != "" {
		sid, _, _, _, err := s.tokens.ValidateRefresh(refreshToken)
		if err != nil {
			return nil
		}
		return s.sessionRepo.Revoke(ctx, sid)
	}
	if sessionID == "" {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, sessionID)
}

// ListSessions returns every session for the identity, revoked ones included,
// so a caller can review where they are signed in.
func (s *AuthService) ListSessions(ctx context.Context, identityID string) ([]*sessiondomain.Session, error) {
	return s.sessionRepo.ListByIdentity(ctx, identityID)
}

// RevokeSession revokes one of the caller's own sessions. Sessions belonging
// to other identities are reported as ErrSessionNotFound rather than
// forbidden, so session ids cannot be enumerated.
func (s *AuthService) RevokeSession(ctx context.Context, identityID, sessionID string) error {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || sess.IdentityID != identityID {
		return ErrSessionNotFound
	}
	return s.sessionRepo.Revoke(ctx, sessionID)
}

// Introspect validates an access token against its backing session and returns
// the identity it belongs to. Used by the session endpoint and by callers that
// hold a raw token rather than a request context.
func (s *AuthService) Introspect(ctx context.Context, accessToken string) (*identitydomain.Identity, error) {
	sessionID, identityID, _, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, security.ErrInvalidToken
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.Active(time.Now().UTC()) {
		return nil, ErrSessionRevoked
	}
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, ErrSessionRevoked
	}
	return ident, nil
}

// UpdatePassword changes the credential for the identity after verifying the
// current password. All other sessions are revoked; a stolen session must not
// survive a password change.
func (s *AuthService) UpdatePassword(ctx context.Context, identityID, currentPassword, newPassword, keepSessionID string) error {
	ident, err := s.identityRepo.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if ident == nil {
		return ErrInvalidCredentials
	}
	if err := s.hasher.Compare(ident.PasswordHash, []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.identityRepo.UpdatePasswordHash(ctx, identityID, hashed); err != nil {
		return err
	}
	_ = s.sessionRepo.RevokeAllByIdentity(ctx, identityID)
	return nil
}

// RequestPasswordReset issues a single-use reset token for the email's
// identity. Returns the raw token for the delivery layer. An unknown email
// returns an empty token and no error so callers cannot discover which accounts exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	ident, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if ident == nil {
		return "", nil
	}
	raw, err := generateResetToken()
	if err != nil {
		return "", err
	}
	rec := &identitydomain.PasswordReset{
		TokenHash:  security.HashRefreshToken(raw),
		IdentityID: ident.ID,
		ExpiresAt:  time.Now().UTC().Add(resetTokenTTL),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.identityRepo.CreatePasswordReset(ctx, rec); err != nil {
		return "", err
	}
	return raw, nil
}

// ResetPassword consumes a reset token and sets the new credential. All
// sessions of the identity are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	rec, err := s.identityRepo.GetPasswordReset(ctx, security.HashRefreshToken(token))
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if rec == nil || rec.UsedAt != nil || now.After(rec.ExpiresAt) {
		return ErrInvalidResetToken
	}
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.identityRepo.UpdatePasswordHash(ctx, rec.IdentityID, hashed); err != nil {
		return err
	}
	if err := s.identityRepo.MarkPasswordResetUsed(ctx, rec.TokenHash); err != nil {
		return err
	}
	_ = s.sessionRepo.RevokeAllByIdentity(ctx, rec.IdentityID)
	return nil
}

// ValidateEmail rejects empty or malformed addresses. Exported so that
// provisioning can reject bad input before any identity is created.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func (s *AuthService) validatePassword(password string) error {
	if len(password) < s.passwordMinLength {
		return fmt.Errorf("password must be at least %d characters", s.passwordMinLength)
	}
	return nil
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
