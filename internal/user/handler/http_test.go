package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/platform/rbac"
	"erp-control-plane/internal/security"
	"erp-control-plane/internal/server/middleware"
	tenantdomain "erp-control-plane/internal/tenant/domain"
	userdomain "erp-control-plane/internal/user/domain"
	"erp-control-plane/internal/user/service"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*userdomain.User
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, id, firstName, lastName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.FirstName = firstName
		u.LastName = lastName
	}
	return nil
}

type memTenants struct {
	mu      sync.Mutex
	tenants map[string]*tenantdomain.Tenant
}

func (m *memTenants) GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *security.TokenProvider, *memUsers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	users := &memUsers{users: map[string]*userdomain.User{
		"u1":   {ID: "u1", TenantID: "t1", Email: "a@x.com", FirstName: "Ada", Role: userdomain.RoleAdmin, Status: userdomain.UserStatusActive},
		"stub": {ID: "stub", Email: "s@x.com", Role: userdomain.RoleMember, Status: userdomain.UserStatusActive},
	}}
	tenants := &memTenants{tenants: map[string]*tenantdomain.Tenant{
		"t1": {ID: "t1", Name: "Acme", Subdomain: "acme", Status: tenantdomain.TenantStatusActive},
	}}

	r := gin.New()
	v1 := r.Group("/v1")
	NewHandler(rbac.NewGate(users, tenants), service.NewProfileService(users)).Register(v1, middleware.RequireAuth(tokens))
	return r, tokens, users
}

func do(t *testing.T, r *gin.Engine, tokens *security.TokenProvider, method, path, identityID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if identityID != "" {
		token, _, _, err := tokens.IssueAccess("sess-1", identityID, "")
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type meResponse struct {
	User struct {
		ID          string `json:"id"`
		Provisioned bool   `json:"provisioned"`
	} `json:"user"`
	Tenant *struct {
		ID string `json:"id"`
	} `json:"tenant"`
}

func TestMe_Provisioned(t *testing.T) {
	r, tokens, _ := newTestRouter(t)

	w := do(t, r, tokens, http.MethodGet, "/v1/me", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp meResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.User.Provisioned || resp.Tenant == nil || resp.Tenant.ID != "t1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestMe_Unprovisioned(t *testing.T) {
	r, tokens, _ := newTestRouter(t)

	w := do(t, r, tokens, http.MethodGet, "/v1/me", "stub", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp meResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.Provisioned || resp.Tenant != nil {
		t.Errorf("unprovisioned caller should get null tenant: %+v", resp)
	}
}

func TestMe_UnknownIdentity(t *testing.T) {
	r, tokens, _ := newTestRouter(t)

	w := do(t, r, tokens, http.MethodGet, "/v1/me", "ghost", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 incomplete_provisioning", w.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	r, tokens, users := newTestRouter(t)

	w := do(t, r, tokens, http.MethodPut, "/v1/me/profile", "u1",
		gin.H{"first_name": "Grace", "last_name": "Hopper"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if users.users["u1"].FirstName != "Grace" {
		t.Error("profile change not persisted")
	}

	w = do(t, r, tokens, http.MethodPut, "/v1/me/profile", "u1", gin.H{"first_name": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank first name: status = %d, want 400", w.Code)
	}
}
