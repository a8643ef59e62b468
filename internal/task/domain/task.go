// Package domain defines work tasks scoped to a tenant.
package domain

import (
	"errors"
	"time"
)

// Task is a unit of shop-floor or back-office work belonging to one tenant.
type Task struct {
	ID          string
	TenantID    string
	Title       string
	Description string
	Priority    Priority
	Status      Status
	AssigneeID  string // empty when unassigned
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

const maxTitleLength = 200

// Validate validates the task for persistence.
func (t *Task) Validate() error {
	if t.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if t.Title == "" {
		return errors.New("title is required")
	}
	if len(t.Title) > maxTitleLength {
		return errors.New("title too long")
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	switch t.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return errors.New("invalid priority")
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	switch t.Status {
	case StatusOpen, StatusInProgress, StatusDone:
	default:
		return errors.New("invalid status")
	}
	return nil
}
