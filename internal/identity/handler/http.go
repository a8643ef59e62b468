// Package handler exposes authentication and tenant provisioning over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/audit"
	"erp-control-plane/internal/identity/service"
	"erp-control-plane/internal/provisioning"
	"erp-control-plane/internal/server/middleware"
)

// Handler serves /v1/auth.
type Handler struct {
	auth  *service.AuthService
	saga  *provisioning.Saga
	audit audit.AuditLogger
}

// NewHandler returns an auth handler. audit may be nil.
func NewHandler(auth *service.AuthService, saga *provisioning.Saga, auditLog audit.AuditLogger) *Handler {
	return &Handler{auth: auth, saga: saga, audit: auditLog}
}

// Register mounts the auth routes on rg. requireAuth guards the
// session-holding endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.POST("/reset-password", h.RequestPasswordReset)
	g.POST("/reset-password/confirm", h.ConfirmPasswordReset)
	g.GET("/session", requireAuth, h.Session)
	g.GET("/sessions", requireAuth, h.ListSessions)
	g.DELETE("/sessions/:id", requireAuth, h.RevokeSession)
	g.PUT("/password", requireAuth, h.UpdatePassword)
}

type signupRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	TenantName string `json:"tenant_name" binding:"required"`
	Subdomain  string `json:"subdomain" binding:"required"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// Signup provisions a tenant with its first admin user in one call.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	res, err := h.saga.Provision(c.Request.Context(), provisioning.ProvisionRequest{
		Email:      req.Email,
		Password:   req.Password,
		TenantName: req.TenantName,
		Subdomain:  req.Subdomain,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"identity_id": res.Identity.ID,
		"tenant": gin.H{
			"id":        res.Tenant.ID,
			"name":      res.Tenant.Name,
			"subdomain": res.Tenant.Subdomain,
			"status":    res.Tenant.Status,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges email/password for an access/refresh token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	res, err := h.auth.SignIn(ctx, req.Email, req.Password, c.ClientIP())
	if err != nil {
		if h.audit != nil {
			h.audit.LogEvent(ctx, "", "", "signin.failed", "session", req.Email)
		}
		middleware.RespondError(c, err)
		return
	}
	if h.audit != nil {
		h.audit.LogEvent(ctx, res.TenantID, res.IdentityID, "signin.succeeded", "session", "")
	}
	c.JSON(http.StatusOK, tokenResponse(res))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates the refresh token and returns a new pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	res, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(res))
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the session named by the refresh token, or the bearer's own
// session when no body is sent. Always 204; sign-out is idempotent.
func (h *Handler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	sessionID, _ := middleware.GetSessionID(c.Request.Context())
	if err := h.auth.SignOut(c.Request.Context(), req.RefreshToken, sessionID); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session introspects the presented access token against its backing session.
func (h *Handler) Session(c *gin.Context) {
	token := middleware.BearerToken(c.Request)
	ident, err := h.auth.Introspect(c.Request.Context(), token)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	tenantID, _ := middleware.GetTenantID(c.Request.Context())
	sessionID, _ := middleware.GetSessionID(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"identity_id": ident.ID,
		"email":       ident.Email,
		"tenant_id":   tenantID,
		"session_id":  sessionID,
	})
}

// ListSessions returns all of the caller's sessions, newest first, so they
// can see where they are signed in. The current session is flagged.
func (h *Handler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)
	currentID, _ := middleware.GetSessionID(ctx)

	sessions, err := h.auth.ListSessions(ctx, identityID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		item := gin.H{
			"id":         s.ID,
			"ip_address": s.IPAddress,
			"created_at": s.CreatedAt.Format(time.RFC3339),
			"expires_at": s.ExpiresAt.Format(time.RFC3339),
			"revoked":    s.RevokedAt != nil,
			"current":    s.ID == currentID,
		}
		if s.LastSeenAt != nil {
			item["last_seen_at"] = s.LastSeenAt.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// RevokeSession revokes one of the caller's sessions by id.
func (h *Handler) RevokeSession(c *gin.Context) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)
	if err := h.auth.RevokeSession(ctx, identityID, c.Param("id")); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// UpdatePassword changes the caller's credential. All sessions are revoked;
// the caller signs in again.
func (h *Handler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)
	sessionID, _ := middleware.GetSessionID(ctx)
	if err := h.auth.UpdatePassword(ctx, identityID, req.CurrentPassword, req.NewPassword, sessionID); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

// RequestPasswordReset issues a reset token. The response is identical for
// known and unknown emails.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	// TODO: hand the token to a mail sender once one exists; until then the
	// token is only written to storage and surfaced by support tooling.
	if _, err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type confirmResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ConfirmPasswordReset consumes a reset token and sets the new credential.
func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req confirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func tokenResponse(res *service.AuthResult) gin.H {
	return gin.H{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"expires_at":    res.ExpiresAt.Format(time.RFC3339),
		"identity_id":   res.IdentityID,
		"tenant_id":     res.TenantID,
	}
}
