// Package handler exposes the caller's membership profile over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/platform/rbac"
	"erp-control-plane/internal/server/middleware"
	userdomain "erp-control-plane/internal/user/domain"
	"erp-control-plane/internal/user/service"
)

// Handler serves /v1/me.
type Handler struct {
	gate     *rbac.Gate
	profiles *service.ProfileService
}

// NewHandler returns a profile handler.
func NewHandler(gate *rbac.Gate, profiles *service.ProfileService) *Handler {
	return &Handler{gate: gate, profiles: profiles}
}

// Register mounts the profile routes on rg behind requireAuth.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/me", requireAuth)
	g.GET("", h.Me)
	g.PUT("/profile", h.UpdateProfile)
}

// Me returns the caller's membership row and, when provisioned, the tenant it
// resolves to. An unprovisioned caller gets their row with a null tenant.
func (h *Handler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)

	tenant, user, err := h.gate.ResolveCurrentTenant(ctx, identityID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if user == nil {
		// Authenticated but unlinked; fall back to the bare membership row.
		u, err := h.gate.RequireUser(ctx, identityID)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		user = u
	}

	resp := gin.H{"user": userJSON(user), "tenant": nil}
	if tenant != nil {
		resp["tenant"] = gin.H{
			"id":        tenant.ID,
			"name":      tenant.Name,
			"subdomain": tenant.Subdomain,
			"status":    tenant.Status,
		}
	}
	c.JSON(http.StatusOK, resp)
}

type updateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
}

// UpdateProfile changes the caller's display fields. Credential changes go
// through /v1/auth/password, never here.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)

	u, err := h.profiles.UpdateProfile(ctx, identityID, userdomain.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(u)})
}

func userJSON(u *userdomain.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"tenant_id":   u.TenantID,
		"email":       u.Email,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"role":        u.Role,
		"status":      u.Status,
		"provisioned": u.Provisioned(),
	}
}
