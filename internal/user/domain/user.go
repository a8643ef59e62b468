package domain

import (
	"errors"
	"time"
)

// User is a tenant membership record. Its ID equals the identity id issued by
// the auth provider. TenantID is empty until provisioning links the row; a row
// without a tenant grants access to nothing tenant-scoped.
type User struct {
	ID        string
	TenantID  string // empty means not yet provisioned into a tenant
	Email     string
	FirstName string
	LastName  string
	Role      Role
	Status    UserStatus
	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Provisioned reports whether the user has been linked into a tenant.
func (u *User) Provisioned() bool {
	return u.TenantID != ""
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleMember
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// ProfileUpdate is a request to change the user's display fields.
type ProfileUpdate struct {
	FirstName string
	LastName  string
}

// PasswordUpdate is a request to change the identity's credential. Validated
// and handled separately from ProfileUpdate; the two never share a code path.
type PasswordUpdate struct {
	Current string
	New     string
}
