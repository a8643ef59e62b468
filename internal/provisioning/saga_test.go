package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	identitydomain "erp-control-plane/internal/identity/domain"
	tenantdomain "erp-control-plane/internal/tenant/domain"
	tenantrepo "erp-control-plane/internal/tenant/repository"
	userdomain "erp-control-plane/internal/user/domain"
)

type fakeAuth struct {
	mu         sync.Mutex
	identities map[string]*identitydomain.Identity
	users      *memUserRepo
	createErr  error
	deleteErr  error
}

func (f *fakeAuth) CreateIdentity(ctx context.Context, email, password string) (*identitydomain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	now := time.Now().UTC()
	i := &identitydomain.Identity{ID: uuid.New().String(), Email: email, PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	f.identities[i.ID] = i
	f.users.put(&userdomain.User{ID: i.ID, Email: email, Role: userdomain.RoleMember, Status: userdomain.UserStatusActive, CreatedAt: now, UpdatedAt: now})
	return i, nil
}

func (f *fakeAuth) DeleteIdentity(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.identities, id)
	f.users.del(id)
	return nil
}

func (f *fakeAuth) live(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.identities[id]
	return ok
}

type memTenantRepo struct {
	mu          sync.Mutex
	bySubdomain map[string]*tenantdomain.Tenant
	byID        map[string]*tenantdomain.Tenant
	createErr   error
}

func (r *memTenantRepo) Create(ctx context.Context, t *tenantdomain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, taken := r.bySubdomain[t.Subdomain]; taken {
		return tenantrepo.ErrSubdomainTaken
	}
	r.bySubdomain[t.Subdomain] = t
	r.byID[t.ID] = t
	return nil
}

func (r *memTenantRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byID[id]; ok {
		delete(r.bySubdomain, t.Subdomain)
		delete(r.byID, id)
	}
	return nil
}

func (r *memTenantRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	linkErr error
}

func (r *memUserRepo) put(u *userdomain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
}

func (r *memUserRepo) del(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) LinkTenant(ctx context.Context, id, tenantID, firstName, lastName string, role userdomain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linkErr != nil {
		return r.linkErr
	}
	u, ok := r.byID[id]
	if !ok {
		return errors.New("user row not found")
	}
	u.TenantID = tenantID
	u.FirstName = firstName
	u.LastName = lastName
	u.Role = role
	return nil
}

func (r *memUserRepo) ListUnlinkedBefore(ctx context.Context, cutoff time.Time) ([]*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*userdomain.User
	for _, u := range r.byID {
		if u.TenantID == "" && u.CreatedAt.Before(cutoff) {
			out = append(out, u)
		}
	}
	return out, nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *memAudit) LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, action)
}

func (a *memAudit) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.events {
		if e == action {
			return true
		}
	}
	return false
}

func newSagaFixture() (*Saga, *fakeAuth, *memTenantRepo, *memUserRepo, *memAudit) {
	users := &memUserRepo{byID: map[string]*userdomain.User{}}
	auth := &fakeAuth{identities: map[string]*identitydomain.Identity{}, users: users}
	tenants := &memTenantRepo{bySubdomain: map[string]*tenantdomain.Tenant{}, byID: map[string]*tenantdomain.Tenant{}}
	audit := &memAudit{}
	saga := NewSaga(auth, tenants, users, audit, slog.New(slog.DiscardHandler), 6)
	return saga, auth, tenants, users, audit
}

func validRequest() ProvisionRequest {
	return ProvisionRequest{
		Email:      "a@x.com",
		Password:   "secret1",
		TenantName: "Acme",
		Subdomain:  "acme",
		FirstName:  "Ada",
		LastName:   "Acme",
	}
}

func TestProvision_Success(t *testing.T) {
	saga, auth, _, users, _ := newSagaFixture()

	res, err := saga.Provision(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if res.Identity.Email != "a@x.com" {
		t.Errorf("identity email = %q, want a@x.com", res.Identity.Email)
	}
	if res.Tenant.Subdomain != "acme" {
		t.Errorf("tenant subdomain = %q, want acme", res.Tenant.Subdomain)
	}
	if res.Tenant.Status != tenantdomain.TenantStatusActive {
		t.Errorf("tenant status = %q, want active", res.Tenant.Status)
	}
	if res.Tenant.SubscriptionPlan != tenantdomain.PlanBasic {
		t.Errorf("tenant plan = %q, want basic", res.Tenant.SubscriptionPlan)
	}
	u, _ := users.GetByID(context.Background(), res.Identity.ID)
	if u == nil {
		t.Fatal("user row missing after provisioning")
	}
	if u.TenantID != res.Tenant.ID {
		t.Errorf("user tenant_id = %q, want %q", u.TenantID, res.Tenant.ID)
	}
	if u.Role != userdomain.RoleAdmin {
		t.Errorf("first user role = %q, want admin", u.Role)
	}
	if !auth.live(res.Identity.ID) {
		t.Error("identity should remain after success")
	}
}

func TestProvision_NormalizesSubdomain(t *testing.T) {
	saga, _, _, _, _ := newSagaFixture()
	req := validRequest()
	req.Subdomain = "  AcMe "

	res, err := saga.Provision(context.Background(), req)
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if res.Tenant.Subdomain != "acme" {
		t.Errorf("subdomain = %q, want acme", res.Tenant.Subdomain)
	}
}

func TestProvision_Validation(t *testing.T) {
	saga, auth, _, _, _ := newSagaFixture()
	testCases := []struct {
		name   string
		mutate func(*ProvisionRequest)
		field  string
	}{
		{"missing email", func(r *ProvisionRequest) { r.Email = "" }, "email"},
		{"malformed email", func(r *ProvisionRequest) { r.Email = "not-an-email" }, "email"},
		{"missing password", func(r *ProvisionRequest) { r.Password = "" }, "password"},
		{"short password", func(r *ProvisionRequest) { r.Password = "abc" }, "password"},
		{"missing tenant name", func(r *ProvisionRequest) { r.TenantName = "" }, "tenantName"},
		{"missing subdomain", func(r *ProvisionRequest) { r.Subdomain = "" }, "subdomain"},
		{"bad subdomain charset", func(r *ProvisionRequest) { r.Subdomain = "ac_me!" }, "subdomain"},
		{"leading hyphen", func(r *ProvisionRequest) { r.Subdomain = "-acme" }, "subdomain"},
		{"too long", func(r *ProvisionRequest) { r.Subdomain = strings.Repeat("a", 64) }, "subdomain"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := saga.Provision(context.Background(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
	// Bad input never reaches the provider; there is nothing to compensate.
	auth.mu.Lock()
	n := len(auth.identities)
	auth.mu.Unlock()
	if n != 0 {
		t.Errorf("identities created during validation = %d, want 0", n)
	}
}

func TestProvision_AuthFailureHasNoSideEffects(t *testing.T) {
	saga, auth, tenants, _, _ := newSagaFixture()
	auth.createErr = errors.New("provider down")

	_, err := saga.Provision(context.Background(), validRequest())
	var aerr *AuthCreationError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want *AuthCreationError", err)
	}
	if tenants.count() != 0 {
		t.Error("no tenant should exist after auth failure")
	}
}

func TestProvision_TenantFailureCompensatesIdentity(t *testing.T) {
	saga, auth, tenants, _, _ := newSagaFixture()
	tenants.createErr = errors.New("storage down")

	_, err := saga.Provision(context.Background(), validRequest())
	var terr *TenantCreationError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TenantCreationError", err)
	}
	if terr.DuplicateSubdomain {
		t.Error("generic storage failure should not be flagged as duplicate subdomain")
	}
	if len(auth.identities) != 0 {
		t.Error("identity should be compensated after tenant failure")
	}
}

func TestProvision_DuplicateSubdomain(t *testing.T) {
	saga, auth, _, _, _ := newSagaFixture()

	first, err := saga.Provision(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("first Provision: %v", err)
	}

	req := validRequest()
	req.Email = "b@x.com"
	_, err = saga.Provision(context.Background(), req)
	var terr *TenantCreationError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TenantCreationError", err)
	}
	if !terr.DuplicateSubdomain {
		t.Error("DuplicateSubdomain should be set for a taken subdomain")
	}
	// The loser's identity is compensated; the winner's survives.
	if len(auth.identities) != 1 {
		t.Errorf("live identities = %d, want 1", len(auth.identities))
	}
	if !auth.live(first.Identity.ID) {
		t.Error("winner's identity should survive")
	}
}

func TestProvision_UserLinkFailureCompensatesBoth(t *testing.T) {
	saga, auth, tenants, users, _ := newSagaFixture()
	users.linkErr = errors.New("update rejected")

	_, err := saga.Provision(context.Background(), validRequest())
	var lerr *UserLinkError
	if !errors.As(err, &lerr) {
		t.Fatalf("err = %v, want *UserLinkError", err)
	}
	if tenants.count() != 0 {
		t.Error("tenant should be compensated after link failure")
	}
	if len(auth.identities) != 0 {
		t.Error("identity should be compensated after link failure")
	}
}

func TestProvision_CompensationFailureDoesNotMaskOriginal(t *testing.T) {
	saga, auth, tenants, _, audit := newSagaFixture()
	tenants.createErr = errors.New("storage down")
	auth.deleteErr = errors.New("provider refuses delete")

	_, err := saga.Provision(context.Background(), validRequest())
	var terr *TenantCreationError
	if !errors.As(err, &terr) {
		t.Fatalf("caller must still see the tenant failure, got %v", err)
	}
	if !audit.has("provision.compensation_failed") {
		t.Error("compensation failure should be audited")
	}
	// Lost compensation leaves an orphaned identity behind, by design.
	if len(auth.identities) != 1 {
		t.Errorf("orphaned identities = %d, want 1", len(auth.identities))
	}
}

func TestListOrphanUsers(t *testing.T) {
	saga, _, _, users, _ := newSagaFixture()
	old := time.Now().UTC().Add(-2 * time.Hour)
	users.put(&userdomain.User{ID: "orphan", Email: "o@x.com", CreatedAt: old})
	users.put(&userdomain.User{ID: "fresh", Email: "f@x.com", CreatedAt: time.Now().UTC()})
	users.put(&userdomain.User{ID: "linked", Email: "l@x.com", TenantID: "t1", CreatedAt: old})

	orphans, err := saga.ListOrphanUsers(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("ListOrphanUsers: %v", err)
	}
	if len(orphans) != 1 || orphans[0].ID != "orphan" {
		t.Errorf("orphans = %v, want exactly the stale unlinked row", orphans)
	}
}

func TestProvision_AuditsSuccess(t *testing.T) {
	saga, _, _, _, audit := newSagaFixture()
	if _, err := saga.Provision(context.Background(), validRequest()); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !audit.has("provision.completed") {
		t.Error("successful provisioning should be audited")
	}
}
