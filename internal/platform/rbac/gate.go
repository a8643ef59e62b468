// Package rbac is the tenant-scoped access gate. Every protected operation
// resolves the caller's membership from storage on every call, never from a
// cache, so a role or tenant revoked mid-session takes effect on the next check.
package rbac

import (
	"context"
	"errors"

	tenantdomain "erp-control-plane/internal/tenant/domain"
	userdomain "erp-control-plane/internal/user/domain"
)

// Gate failure taxonomy. All are terminal for the current request; the HTTP
// layer maps each to exactly one outward status.
var (
	ErrUnauthenticated        = errors.New("authentication required")
	ErrIncompleteProvisioning = errors.New("identity has no membership record")
	ErrNoTenant               = errors.New("identity is not provisioned into a tenant")
	ErrForbidden              = errors.New("forbidden")
)

// AdminRoles is the role set handlers pass to RequireRole for admin-only
// operations. A variable, not inline literals, so deployments can widen it.
var AdminRoles = map[userdomain.Role]bool{
	userdomain.RoleAdmin: true,
}

// UserGetter resolves a membership row by identity id.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// TenantGetter resolves a tenant row by id.
type TenantGetter interface {
	GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error)
}

// Gate answers "is this request's identity allowed to act, and within which
// tenant context?".
type Gate struct {
	users   UserGetter
	tenants TenantGetter
}

// NewGate returns a Gate backed by the given lookups.
func NewGate(users UserGetter, tenants TenantGetter) *Gate {
	return &Gate{users: users, tenants: tenants}
}

// ResolveCurrentTenant looks up the membership row for the identity. Returns
// (nil, nil, nil) when the row is absent or not yet linked to a tenant:
// authenticated but unprovisioned is not an error here. Otherwise returns the
// tenant and user rows.
func (g *Gate) ResolveCurrentTenant(ctx context.Context, identityID string) (*tenantdomain.Tenant, *userdomain.User, error) {
	if identityID == "" {
		return nil, nil, ErrUnauthenticated
	}
	u, err := g.users.GetByID(ctx, identityID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || !u.Provisioned() {
		return nil, nil, nil
	}
	t, err := g.tenants.GetByID(ctx, u.TenantID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		// Membership points at a tenant that no longer exists; treat as unprovisioned.
		return nil, nil, nil
	}
	return t, u, nil
}

// RequireUser ensures the identity has a membership row, provisioned or not.
// Returns ErrUnauthenticated for an empty identity and ErrIncompleteProvisioning
// when the row does not exist.
func (g *Gate) RequireUser(ctx context.Context, identityID string) (*userdomain.User, error) {
	if identityID == "" {
		return nil, ErrUnauthenticated
	}
	u, err := g.users.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrIncompleteProvisioning
	}
	return u, nil
}

// RequireTenant ensures the identity is provisioned into a tenant and returns
// both rows. Returns ErrNoTenant when authenticated but unprovisioned.
func (g *Gate) RequireTenant(ctx context.Context, identityID string) (*tenantdomain.Tenant, *userdomain.User, error) {
	t, u, err := g.ResolveCurrentTenant(ctx, identityID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil || u == nil {
		return nil, nil, ErrNoTenant
	}
	return t, u, nil
}

// RequireRole ensures the identity is provisioned and holds one of the allowed
// roles. Returns ErrForbidden when the role is not in the set.
func (g *Gate) RequireRole(ctx context.Context, identityID string, allowed map[userdomain.Role]bool) (*userdomain.User, error) {
	_, u, err := g.RequireTenant(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if !allowed[u.Role] {
		return nil, ErrForbidden
	}
	return u, nil
}

// RequireTenantAccess is the row-level multi-tenancy boundary: it ensures the
// identity's resolved tenant equals targetTenantID. Every tenant-scoped data
// access must pass through this check before touching storage; the storage
// layer itself only filters by what callers remember to pass.
func (g *Gate) RequireTenantAccess(ctx context.Context, identityID, targetTenantID string) (*userdomain.User, error) {
	_, u, err := g.RequireTenant(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if targetTenantID == "" || u.TenantID != targetTenantID {
		return nil, ErrForbidden
	}
	return u, nil
}
