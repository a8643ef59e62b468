// Package handler exposes tenant resolution and the caller's current tenant
// over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/platform/rbac"
	"erp-control-plane/internal/server/middleware"
	tenantdomain "erp-control-plane/internal/tenant/domain"
)

// TenantDirectory is the read surface host-based resolution needs.
type TenantDirectory interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*tenantdomain.Tenant, error)
}

// Handler serves /v1/tenants.
type Handler struct {
	gate    *rbac.Gate
	tenants TenantDirectory
}

// NewHandler returns a tenant handler.
func NewHandler(gate *rbac.Gate, tenants TenantDirectory) *Handler {
	return &Handler{gate: gate, tenants: tenants}
}

// Register mounts the tenant routes on rg. Resolve is unauthenticated; a
// browser hitting acme.example.com needs the tenant before anyone signs in.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/tenants")
	g.GET("/resolve/:subdomain", h.Resolve)
	g.GET("/current", requireAuth, h.Current)
}

// Resolve looks up an active tenant by subdomain. Inactive and unknown
// subdomains are indistinguishable from outside.
func (h *Handler) Resolve(c *gin.Context) {
	sub := tenantdomain.NormalizeSubdomain(c.Param("subdomain"))
	if err := tenantdomain.ValidateSubdomain(sub); err != nil {
		middleware.BadRequest(c, "invalid subdomain")
		return
	}
	t, err := h.tenants.GetBySubdomain(c.Request.Context(), sub)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "tenant not found"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        t.ID,
		"name":      t.Name,
		"subdomain": t.Subdomain,
	})
}

// Current returns the tenant the caller is provisioned into. An unprovisioned
// caller gets 403 no_tenant, not an empty body.
func (h *Handler) Current(c *gin.Context) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)

	tenant, user, err := h.gate.RequireTenant(ctx, identityID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                tenant.ID,
		"name":              tenant.Name,
		"subdomain":         tenant.Subdomain,
		"status":            tenant.Status,
		"subscription_plan": tenant.SubscriptionPlan,
		"role":              user.Role,
	})
}
