package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Tenant represents an isolated customer organization. All business data is
// scoped to exactly one tenant.
type Tenant struct {
	ID               string
	Name             string
	Subdomain        string
	Status           TenantStatus
	SubscriptionPlan string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

const (
	// PlanBasic is the subscription plan assigned at provisioning.
	PlanBasic = "basic"

	maxSubdomainLen = 63
)

var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// NormalizeSubdomain trims and lowercases s. Subdomains are uniqueness keys, so
// normalization must happen before any lookup or insert to avoid case-variant
// collisions.
func NormalizeSubdomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateSubdomain reports whether s (already normalized) is a usable
// subdomain: DNS-label charset, no leading/trailing hyphen, at most 63 bytes.
func ValidateSubdomain(s string) error {
	if s == "" {
		return errors.New("subdomain is required")
	}
	if len(s) > maxSubdomainLen {
		return errors.New("subdomain must be at most 63 characters")
	}
	if !subdomainRe.MatchString(s) {
		return errors.New("subdomain must contain only lowercase letters, digits, and hyphens")
	}
	return nil
}

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if err := ValidateSubdomain(t.Subdomain); err != nil {
		return err
	}
	if t.Status == "" {
		t.Status = TenantStatusActive
	}
	if t.SubscriptionPlan == "" {
		t.SubscriptionPlan = PlanBasic
	}
	return nil
}
