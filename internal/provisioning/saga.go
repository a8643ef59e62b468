// Package provisioning creates a tenant and its first administrative user as a
// saga: an ordered sequence of creates across the auth provider and relational
// storage, with reverse-order compensating deletes when a later step fails.
// There is no shared commit protocol between the two systems; compensation is
// best-effort and every compensation failure is logged and audited so orphaned
// resources stay discoverable.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	identitydomain "erp-control-plane/internal/identity/domain"
	identityservice "erp-control-plane/internal/identity/service"
	tenantdomain "erp-control-plane/internal/tenant/domain"
	tenantrepo "erp-control-plane/internal/tenant/repository"
	userdomain "erp-control-plane/internal/user/domain"
)

// AuthProvider is the identity surface the saga drives. CreateIdentity also
// materializes the unlinked user stub; DeleteIdentity removes both.
type AuthProvider interface {
	CreateIdentity(ctx context.Context, email, password string) (*identitydomain.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
}

// TenantRepo is the minimal tenant repository needed by the saga.
type TenantRepo interface {
	Create(ctx context.Context, t *tenantdomain.Tenant) error
	Delete(ctx context.Context, id string) error
}

// UserRepo is the minimal user repository needed by the saga.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	LinkTenant(ctx context.Context, id, tenantID, firstName, lastName string, role userdomain.Role) error
	ListUnlinkedBefore(ctx context.Context, cutoff time.Time) ([]*userdomain.User, error)
}

// AuditLogger records saga outcomes. Best-effort; implementations must not fail the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string)
}

// Audit actions written by the saga. ActionCompensationFailed marks a leaked
// resource; cmd/orphans queries for it.
const (
	ActionCompleted          = "provision.completed"
	ActionCompensationFailed = "provision.compensation_failed"
)

// ProvisionRequest is the input to Provision. Subdomain is normalized before use.
type ProvisionRequest struct {
	Email      string
	Password   string
	TenantName string
	Subdomain  string
	FirstName  string
	LastName   string
}

// ProvisionResult is returned on full success.
type ProvisionResult struct {
	Identity *identitydomain.Identity
	Tenant   *tenantdomain.Tenant
}

// compensation is one queued undo action. Compensations run in reverse order
// of the creates they undo.
type compensation struct {
	name string
	run  func(context.Context) error
}

// Saga drives the identity → tenant → user-link sequence.
type Saga struct {
	auth              AuthProvider
	tenants           TenantRepo
	users             UserRepo
	audit             AuditLogger
	logger            *slog.Logger
	passwordMinLength int
}

// NewSaga returns a Saga with the given dependencies. audit may be nil;
// passwordMinLength below 1 falls back to the default the auth service uses.
func NewSaga(auth AuthProvider, tenants TenantRepo, users UserRepo, audit AuditLogger, logger *slog.Logger, passwordMinLength int) *Saga {
	if logger == nil {
		logger = slog.Default()
	}
	if passwordMinLength < 1 {
		passwordMinLength = 6
	}
	return &Saga{
		auth:              auth,
		tenants:           tenants,
		users:             users,
		audit:             audit,
		logger:            logger,
		passwordMinLength: passwordMinLength,
	}
}

// Provision creates an identity, a tenant, and links the two, or leaves no
// partial state behind. On a step failure the queued compensations run in
// reverse order; their failures are logged and audited but never mask the
// original error, so the caller always sees why the step itself failed.
func (s *Saga) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	req.Subdomain = tenantdomain.NormalizeSubdomain(req.Subdomain)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var undo []compensation

	// Step 1: identity. Nothing to compensate on failure.
	ident, err := s.auth.CreateIdentity(ctx, req.Email, req.Password)
	if err != nil {
		return nil, &AuthCreationError{Reason: err}
	}
	undo = append(undo, compensation{
		name: "delete identity " + ident.ID,
		run:  func(ctx context.Context) error { return s.auth.DeleteIdentity(ctx, ident.ID) },
	})

	// Step 2: tenant. The subdomain uniqueness constraint is the only guard
	// against racing runs; exactly one of two races survives this insert.
	now := time.Now().UTC()
	ten := &tenantdomain.Tenant{
		ID:               uuid.New().String(),
		Name:             req.TenantName,
		Subdomain:        req.Subdomain,
		Status:           tenantdomain.TenantStatusActive,
		SubscriptionPlan: tenantdomain.PlanBasic,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.tenants.Create(ctx, ten); err != nil {
		s.compensate(ctx, ident.ID, undo)
		return nil, &TenantCreationError{
			Reason:             err,
			DuplicateSubdomain: errors.Is(err, tenantrepo.ErrSubdomainTaken),
		}
	}
	undo = append(undo, compensation{
		name: "delete tenant " + ten.ID,
		run:  func(ctx context.Context) error { return s.tenants.Delete(ctx, ten.ID) },
	})

	// Step 3: link the membership row to the tenant. The first user of a
	// tenant is always its admin.
	if err := s.users.LinkTenant(ctx, ident.ID, ten.ID, req.FirstName, req.LastName, userdomain.RoleAdmin); err != nil {
		s.compensate(ctx, ident.ID, undo)
		return nil, &UserLinkError{Reason: err}
	}

	if s.audit != nil {
		s.audit.LogEvent(ctx, ten.ID, ident.ID, ActionCompleted, "tenant", req.Subdomain)
	}
	return &ProvisionResult{Identity: ident, Tenant: ten}, nil
}

// compensate runs queued undo actions in reverse order. Each failure is caught
// independently: the remaining compensations still run, and the caller's
// original error is never replaced. Runs on a context detached from request
// cancellation; an aborted request still owes its cleanup.
func (s *Saga) compensate(ctx context.Context, identityID string, undo []compensation) {
	ctx = context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		c := undo[i]
		if err := c.run(ctx); err != nil {
			s.logger.Error("provisioning compensation failed; orphan requires manual cleanup",
				"compensation", c.name,
				"identity_id", identityID,
				"error", err,
			)
			if s.audit != nil {
				s.audit.LogEvent(ctx, "", identityID, ActionCompensationFailed, "saga", c.name)
			}
		}
	}
}

// ListOrphanUsers returns user rows still lacking a tenant after the grace
// period. A lost compensation leaves exactly this shape behind; reconciliation
// is out-of-band but detection lives here.
func (s *Saga) ListOrphanUsers(ctx context.Context, grace time.Duration) ([]*userdomain.User, error) {
	cutoff := time.Now().UTC().Add(-grace)
	return s.users.ListUnlinkedBefore(ctx, cutoff)
}

// validate rejects bad input before step 1 runs. Email and password rules
// mirror the auth service exactly; a request that passes here can only fail
// identity creation for provider-side reasons, never for its own shape.
func (s *Saga) validate(req ProvisionRequest) error {
	if err := identityservice.ValidateEmail(strings.TrimSpace(strings.ToLower(req.Email))); err != nil {
		return &ValidationError{Field: "email", Reason: err}
	}
	if len(req.Password) < s.passwordMinLength {
		return &ValidationError{Field: "password", Reason: fmt.Errorf("must be at least %d characters", s.passwordMinLength)}
	}
	if req.TenantName == "" {
		return &ValidationError{Field: "tenantName", Reason: errors.New("required")}
	}
	if err := tenantdomain.ValidateSubdomain(req.Subdomain); err != nil {
		return &ValidationError{Field: "subdomain", Reason: err}
	}
	return nil
}
