// Package domain defines production orders, the manufacturing work queue of a
// tenant.
package domain

import (
	"errors"
	"time"
)

// Order is a tenant-scoped production order. OrderNumber is unique within a
// tenant; two tenants may use the same number.
type Order struct {
	ID          string
	TenantID    string
	OrderNumber string
	ProductSKU  string
	Quantity    int
	DueDate     *time.Time
	Status      Status
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Status string

const (
	StatusDraft      Status = "draft"
	StatusReleased   Status = "released"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Validate validates the order for persistence.
func (o *Order) Validate() error {
	if o.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if o.OrderNumber == "" {
		return errors.New("order number is required")
	}
	if o.ProductSKU == "" {
		return errors.New("product sku is required")
	}
	if o.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	if o.Status == "" {
		o.Status = StatusDraft
	}
	switch o.Status {
	case StatusDraft, StatusReleased, StatusInProgress, StatusCompleted, StatusCancelled:
	default:
		return errors.New("invalid status")
	}
	return nil
}
