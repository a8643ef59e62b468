package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	identitydomain "erp-control-plane/internal/identity/domain"
	"erp-control-plane/internal/identity/service"
	"erp-control-plane/internal/provisioning"
	"erp-control-plane/internal/security"
	"erp-control-plane/internal/server/middleware"
	sessiondomain "erp-control-plane/internal/session/domain"
	tenantdomain "erp-control-plane/internal/tenant/domain"
	tenantrepo "erp-control-plane/internal/tenant/repository"
	userdomain "erp-control-plane/internal/user/domain"
)

// The fixture assembles the real auth service and saga over in-memory
// repositories, so these tests walk the same signup → login → session path a
// deployed server does.

type memStore struct {
	mu         sync.Mutex
	identities map[string]*identitydomain.Identity
	users      map[string]*userdomain.User
	sessions   map[string]*sessiondomain.Session
	tenants    map[string]*tenantdomain.Tenant
	resets     map[string]*identitydomain.PasswordReset
}

func newMemStore() *memStore {
	return &memStore{
		identities: make(map[string]*identitydomain.Identity),
		users:      make(map[string]*userdomain.User),
		sessions:   make(map[string]*sessiondomain.Session),
		tenants:    make(map[string]*tenantdomain.Tenant),
		resets:     make(map[string]*identitydomain.PasswordReset),
	}
}

// identity repo surface

func (s *memStore) GetByID(ctx context.Context, id string) (*identitydomain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.identities[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*identitydomain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.identities {
		if i.Email == email {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) Create(ctx context.Context, i *identitydomain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *i
	s.identities[i.ID] = &cp
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, id)
	return nil
}

func (s *memStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.identities[id]; ok {
		i.PasswordHash = hash
	}
	return nil
}

func (s *memStore) CreatePasswordReset(ctx context.Context, r *identitydomain.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.resets[r.TokenHash] = &cp
	return nil
}

func (s *memStore) GetPasswordReset(ctx context.Context, tokenHash string) (*identitydomain.PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) MarkPasswordResetUsed(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resets[tokenHash]; ok {
		now := time.Now().UTC()
		r.UsedAt = &now
	}
	return nil
}

// user repo surface (auth service + saga)

type memUserStore struct{ s *memStore }

func (m memUserStore) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m memUserStore) Create(ctx context.Context, u *userdomain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m memUserStore) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.users, id)
	return nil
}

func (m memUserStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (m memUserStore) LinkTenant(ctx context.Context, id, tenantID, firstName, lastName string, role userdomain.Role) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return context.Canceled // repository reports missing rows as errors
	}
	u.TenantID = tenantID
	u.FirstName = firstName
	u.LastName = lastName
	u.Role = role
	return nil
}

func (m memUserStore) ListUnlinkedBefore(ctx context.Context, cutoff time.Time) ([]*userdomain.User, error) {
	return nil, nil
}

// session repo surface

type memSessionStore struct{ s *memStore }

func (m memSessionStore) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (m memSessionStore) ListByIdentity(ctx context.Context, identityID string) ([]*sessiondomain.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*sessiondomain.Session
	for _, sess := range m.s.sessions {
		if sess.IdentityID == identityID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memSessionStore) Create(ctx context.Context, sess *sessiondomain.Session) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *sess
	m.s.sessions[sess.ID] = &cp
	return nil
}

func (m memSessionStore) Revoke(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sess, ok := m.s.sessions[id]; ok && sess.RevokedAt == nil {
		now := time.Now().UTC()
		sess.RevokedAt = &now
	}
	return nil
}

func (m memSessionStore) RevokeAllByIdentity(ctx context.Context, identityID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	now := time.Now().UTC()
	for _, sess := range m.s.sessions {
		if sess.IdentityID == identityID && sess.RevokedAt == nil {
			sess.RevokedAt = &now
		}
	}
	return nil
}

func (m memSessionStore) UpdateRefreshToken(ctx context.Context, sessionID, jti, hash string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if sess, ok := m.s.sessions[sessionID]; ok {
		sess.RefreshJti = jti
		sess.RefreshTokenHash = hash
	}
	return nil
}

func (m memSessionStore) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	return nil
}

// tenant repo surface (saga)

type memTenantStore struct{ s *memStore }

func (m memTenantStore) Create(ctx context.Context, t *tenantdomain.Tenant) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.tenants {
		if existing.Subdomain == t.Subdomain {
			return tenantrepo.ErrSubdomainTaken
		}
	}
	cp := *t
	m.s.tenants[t.ID] = &cp
	return nil
}

func (m memTenantStore) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.tenants, id)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	store := newMemStore()
	auth := service.NewAuthService(store, memUserStore{store}, memSessionStore{store},
		security.NewHasher(bcrypt.MinCost), tokens, 6, 24*time.Hour)
	saga := provisioning.NewSaga(auth, memTenantStore{store}, memUserStore{store}, nil,
		slog.New(slog.DiscardHandler), 6)

	r := gin.New()
	v1 := r.Group("/v1")
	NewHandler(auth, saga, nil).Register(v1, middleware.RequireAuth(tokens))
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signup(t *testing.T, r *gin.Engine, email, subdomain string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, r, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email":       email,
		"password":    "secret1",
		"tenant_name": "Acme",
		"subdomain":   subdomain,
		"first_name":  "Ada",
		"last_name":   "Lovelace",
	})
}

func TestSignupLoginSession(t *testing.T) {
	r, store := newTestRouter(t)

	w := signup(t, r, "a@x.com", "acme")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		IdentityID string `json:"identity_id"`
		Tenant     struct {
			ID        string `json:"id"`
			Subdomain string `json:"subdomain"`
		} `json:"tenant"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	if created.Tenant.Subdomain != "acme" {
		t.Errorf("subdomain = %q", created.Tenant.Subdomain)
	}
	if store.users[created.IdentityID].Role != userdomain.RoleAdmin {
		t.Errorf("first user role = %q, want admin", store.users[created.IdentityID].Role)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		TenantID    string `json:"tenant_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if tok.TenantID != created.Tenant.ID {
		t.Errorf("login tenant = %q, want %q", tok.TenantID, created.Tenant.ID)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/auth/session", tok.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestSignup_DuplicateSubdomain(t *testing.T) {
	r, store := newTestRouter(t)

	if w := signup(t, r, "a@x.com", "acme"); w.Code != http.StatusCreated {
		t.Fatalf("first signup: %d", w.Code)
	}
	w := signup(t, r, "b@x.com", "acme")
	if w.Code != http.StatusConflict {
		t.Fatalf("second signup status = %d, want 409; body %s", w.Code, w.Body.String())
	}
	// The loser must be fully compensated: no identity, no user stub.
	if got, _ := store.GetByEmail(context.Background(), "b@x.com"); got != nil {
		t.Error("loser identity should have been compensated away")
	}
	if len(store.tenants) != 1 {
		t.Errorf("tenants = %d, want 1", len(store.tenants))
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := signup(t, r, "a@x.com", "acme"); w.Code != http.StatusCreated {
		t.Fatalf("first signup: %d", w.Code)
	}
	w := signup(t, r, "a@x.com", "other")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body %s", w.Code, w.Body.String())
	}
}

func TestSignup_InvalidSubdomain(t *testing.T) {
	r, _ := newTestRouter(t)

	w := signup(t, r, "a@x.com", "-bad-")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", w.Code, w.Body.String())
	}
}

// Bad credentials in the signup body are the caller's mistake and must come
// back 400 invalid_argument, not as a provider failure.
func TestSignup_InvalidEmailAndPassword(t *testing.T) {
	r, store := newTestRouter(t)

	cases := []struct {
		name string
		body gin.H
	}{
		{"short password", gin.H{"email": "a@x.com", "password": "abc", "tenant_name": "Acme", "subdomain": "acme"}},
		{"malformed email", gin.H{"email": "not-an-email", "password": "secret1", "tenant_name": "Acme", "subdomain": "acme"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/v1/auth/signup", "", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body %s", w.Code, w.Body.String())
			}
			var resp struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != "invalid_argument" {
				t.Errorf("code = %q, want invalid_argument", resp.Error.Code)
			}
			if resp.Error.Message == "" {
				t.Error("message should carry the validation detail")
			}
		})
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.identities) != 0 || len(store.tenants) != 0 {
		t.Errorf("rejected signups left %d identities, %d tenants", len(store.identities), len(store.tenants))
	}
}

func TestLogin_BadPassword(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := signup(t, r, "a@x.com", "acme"); w.Code != http.StatusCreated {
		t.Fatalf("signup: %d", w.Code)
	}
	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@x.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := signup(t, r, "a@x.com", "acme"); w.Code != http.StatusCreated {
		t.Fatalf("signup: %d", w.Code)
	}
	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
	var tok struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": tok.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", w.Code, w.Body.String())
	}
	var rotated struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rotated); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/v1/auth/logout", "", gin.H{"refresh_token": rotated.RefreshToken})
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": rotated.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout = %d, want 401", w.Code)
	}
}
