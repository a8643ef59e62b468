// Package service implements membership profile operations. Credential changes
// are deliberately not here: a password change goes through the auth service
// and never shares a code path with display-field updates.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"erp-control-plane/internal/user/domain"
)

// ErrUserNotFound is returned when no membership row exists for the identity.
var ErrUserNotFound = errors.New("user not found")

// ValidationError reports rejected profile input. Nothing was written.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

const maxNameLength = 100

// UserRepo is the minimal user repository needed by the profile service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id, firstName, lastName string) error
}

// ProfileService reads and updates membership display fields.
type ProfileService struct {
	users UserRepo
}

// NewProfileService returns a ProfileService backed by the given repository.
func NewProfileService(users UserRepo) *ProfileService {
	return &ProfileService{users: users}
}

// Get returns the membership row for the identity.
func (s *ProfileService) Get(ctx context.Context, identityID string) (*domain.User, error) {
	if identityID == "" {
		return nil, ErrUserNotFound
	}
	u, err := s.users.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfile applies a display-field change and returns the updated row.
func (s *ProfileService) UpdateProfile(ctx context.Context, identityID string, upd domain.ProfileUpdate) (*domain.User, error) {
	u, err := s.Get(ctx, identityID)
	if err != nil {
		return nil, err
	}
	first := strings.TrimSpace(upd.FirstName)
	last := strings.TrimSpace(upd.LastName)
	if first == "" {
		return nil, &ValidationError{Reason: "first name is required"}
	}
	if len(first) > maxNameLength || len(last) > maxNameLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("name must be at most %d characters", maxNameLength)}
	}
	if err := s.users.UpdateProfile(ctx, identityID, first, last); err != nil {
		return nil, err
	}
	u.FirstName = first
	u.LastName = last
	return u, nil
}
