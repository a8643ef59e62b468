package domain

import "time"

// AuditLog is an append-only record of a security-relevant action. TenantID
// is "_system" for events that happen before a tenant exists, such as a
// provisioning run that had to be compensated.
type AuditLog struct {
	ID       string
	TenantID string
	UserID   string

	Action   string
	Resource string
	Metadata string

	IP        string
	CreatedAt time.Time
}
