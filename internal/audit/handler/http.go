// Package handler exposes the tenant's audit trail to its administrators.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/audit/domain"
	"erp-control-plane/internal/platform/rbac"
	"erp-control-plane/internal/server/middleware"
)

const (
	defaultWindow = 7 * 24 * time.Hour
	defaultLimit  = 50
	maxLimit      = 200
)

// LogReader is the read surface the handler needs.
type LogReader interface {
	ListByTenant(ctx context.Context, tenantID string, since time.Time, limit int) ([]*domain.AuditLog, error)
}

// Handler serves /v1/audit-logs.
type Handler struct {
	gate *rbac.Gate
	logs LogReader
}

// NewHandler returns an audit handler.
func NewHandler(gate *rbac.Gate, logs LogReader) *Handler {
	return &Handler{gate: gate, logs: logs}
}

// Register mounts the audit routes on rg behind requireAuth.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/audit-logs", requireAuth)
	g.GET("", h.List)
}

// List returns recent audit entries for the caller's tenant, newest first.
// Admin-only; members have no business reading who did what.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)

	u, err := h.gate.RequireRole(ctx, identityID, rbac.AdminRoles)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
		if limit > maxLimit {
			limit = maxLimit
		}
	}

	entries, err := h.logs.ListByTenant(ctx, u.TenantID, time.Now().UTC().Add(-defaultWindow), limit)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, a := range entries {
		out = append(out, gin.H{
			"id":         a.ID,
			"user_id":    a.UserID,
			"action":     a.Action,
			"resource":   a.Resource,
			"metadata":   a.Metadata,
			"ip":         a.IP,
			"created_at": a.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": out})
}
