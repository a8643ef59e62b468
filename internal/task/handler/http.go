// Package handler exposes tenant-scoped task CRUD over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"erp-control-plane/internal/platform/rbac"
	"erp-control-plane/internal/server/middleware"
	"erp-control-plane/internal/task/domain"
	taskrepo "erp-control-plane/internal/task/repository"
	userdomain "erp-control-plane/internal/user/domain"
)

// Handler serves /v1/tasks. Every operation re-checks the token's tenant claim
// against storage through the gate before touching the repository.
type Handler struct {
	gate  *rbac.Gate
	tasks taskrepo.Repository
}

// NewHandler returns a task handler.
func NewHandler(gate *rbac.Gate, tasks taskrepo.Repository) *Handler {
	return &Handler{gate: gate, tasks: tasks}
}

// Register mounts the task routes on rg behind requireAuth.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/tasks", requireAuth)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// authorize resolves the caller's membership and checks it still matches the
// tenant the access token was minted for. A role or tenant revoked mid-session
// fails here, on the next request.
func (h *Handler) authorize(c *gin.Context) (*userdomain.User, bool) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)
	claimedTenant, _ := middleware.GetTenantID(ctx)

	u, err := h.gate.RequireTenantAccess(ctx, identityID, claimedTenant)
	if err != nil {
		middleware.RespondError(c, err)
		return nil, false
	}
	return u, true
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	AssigneeID  string `json:"assignee_id"`
}

// Create adds a task to the caller's tenant.
func (h *Handler) Create(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	now := time.Now().UTC()
	t := &domain.Task{
		ID:          uuid.New().String(),
		TenantID:    u.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(req.Priority),
		Status:      domain.StatusOpen,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   u.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.tasks.Create(c.Request.Context(), t); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskJSON(t))
}

// List returns the tenant's tasks, newest first.
func (h *Handler) List(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, err := h.tasks.ListByTenant(c.Request.Context(), u.TenantID, limit, offset)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

// Get returns one task. A task in another tenant reads as 404.
func (h *Handler) Get(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	t, err := h.tasks.GetByID(c.Request.Context(), u.TenantID, c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "task not found"}})
		return
	}
	c.JSON(http.StatusOK, taskJSON(t))
}

type updateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	AssigneeID  string `json:"assignee_id"`
}

// Update rewrites the task's mutable fields.
func (h *Handler) Update(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	t, err := h.tasks.GetByID(c.Request.Context(), u.TenantID, c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "task not found"}})
		return
	}
	t.Title = req.Title
	t.Description = req.Description
	if req.Priority != "" {
		t.Priority = domain.Priority(req.Priority)
	}
	if req.Status != "" {
		t.Status = domain.Status(req.Status)
	}
	t.AssigneeID = req.AssigneeID
	t.UpdatedAt = time.Now().UTC()
	if err := t.Validate(); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.tasks.Update(c.Request.Context(), t); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskJSON(t))
}

// Delete removes a task. Admin only.
func (h *Handler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)

	u, err := h.gate.RequireRole(ctx, identityID, rbac.AdminRoles)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if err := h.tasks.Delete(ctx, u.TenantID, c.Param("id")); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func taskJSON(t *domain.Task) gin.H {
	return gin.H{
		"id":          t.ID,
		"tenant_id":   t.TenantID,
		"title":       t.Title,
		"description": t.Description,
		"priority":    t.Priority,
		"status":      t.Status,
		"assignee_id": t.AssigneeID,
		"created_by":  t.CreatedBy,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
}
