// Package handler exposes tenant-scoped production order CRUD over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"erp-control-plane/internal/platform/rbac"
	"erp-control-plane/internal/productionorder/domain"
	orderrepo "erp-control-plane/internal/productionorder/repository"
	"erp-control-plane/internal/server/middleware"
	userdomain "erp-control-plane/internal/user/domain"
)

// Handler serves /v1/production-orders. Every operation re-checks the token's
// tenant claim against storage through the gate before touching the repository.
type Handler struct {
	gate   *rbac.Gate
	orders orderrepo.Repository
}

// NewHandler returns a production order handler.
func NewHandler(gate *rbac.Gate, orders orderrepo.Repository) *Handler {
	return &Handler{gate: gate, orders: orders}
}

// Register mounts the production order routes on rg behind requireAuth.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := rg.Group("/production-orders", requireAuth)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

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

type createOrderRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
	ProductSKU  string `json:"product_sku" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	DueDate     string `json:"due_date"`
}

// Create adds a production order to the caller's tenant. A duplicate order
// number within the tenant is a 409.
func (h *Handler) Create(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		middleware.BadRequest(c, "due_date must be RFC3339")
		return
	}
	now := time.Now().UTC()
	o := &domain.Order{
		ID:          uuid.New().String(),
		TenantID:    u.TenantID,
		OrderNumber: req.OrderNumber,
		ProductSKU:  req.ProductSKU,
		Quantity:    req.Quantity,
		DueDate:     due,
		Status:      domain.StatusDraft,
		CreatedBy:   u.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.Validate(); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.orders.Create(c.Request.Context(), o); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderJSON(o))
}

// List returns the tenant's production orders, newest first.
func (h *Handler) List(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.orders.ListByTenant(c.Request.Context(), u.TenantID, limit, offset)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderJSON(o))
	}
	c.JSON(http.StatusOK, gin.H{"production_orders": out})
}

// Get returns one order. An order in another tenant reads as 404.
func (h *Handler) Get(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	o, err := h.orders.GetByID(c.Request.Context(), u.TenantID, c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if o == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "production order not found"}})
		return
	}
	c.JSON(http.StatusOK, orderJSON(o))
}

type updateOrderRequest struct {
	ProductSKU string `json:"product_sku" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
	DueDate    string `json:"due_date"`
	Status     string `json:"status"`
}

// Update rewrites the order's mutable fields. The order number is immutable.
func (h *Handler) Update(c *gin.Context) {
	u, ok := h.authorize(c)
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		middleware.BadRequest(c, "due_date must be RFC3339")
		return
	}
	o, err := h.orders.GetByID(c.Request.Context(), u.TenantID, c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if o == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "production order not found"}})
		return
	}
	o.ProductSKU = req.ProductSKU
	o.Quantity = req.Quantity
	if due != nil {
		o.DueDate = due
	}
	if req.Status != "" {
		o.Status = domain.Status(req.Status)
	}
	o.UpdatedAt = time.Now().UTC()
	if err := o.Validate(); err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err := h.orders.Update(c.Request.Context(), o); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderJSON(o))
}

// Delete removes an order. Admin only.
func (h *Handler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	identityID, _ := middleware.GetIdentityID(ctx)

	u, err := h.gate.RequireRole(ctx, identityID, rbac.AdminRoles)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if err := h.orders.Delete(ctx, u.TenantID, c.Param("id")); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func orderJSON(o *domain.Order) gin.H {
	return gin.H{
		"id":           o.ID,
		"tenant_id":    o.TenantID,
		"order_number": o.OrderNumber,
		"product_sku":  o.ProductSKU,
		"quantity":     o.Quantity,
		"due_date":     o.DueDate,
		"status":       o.Status,
		"created_by":   o.CreatedBy,
		"created_at":   o.CreatedAt,
		"updated_at":   o.UpdatedAt,
	}
}
