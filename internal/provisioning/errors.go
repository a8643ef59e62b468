package provisioning

import "fmt"

// AuthCreationError reports a failure creating the identity (saga step 1).
// Nothing was created; there is nothing to compensate.
type AuthCreationError struct {
	Reason error
}

func (e *AuthCreationError) Error() string {
	return fmt.Sprintf("auth creation failed: %v", e.Reason)
}

func (e *AuthCreationError) Unwrap() error { return e.Reason }

// TenantCreationError reports a failure creating the tenant (saga step 2).
// DuplicateSubdomain is true when the storage layer rejected the subdomain
// uniqueness key; callers render it as "subdomain taken".
type TenantCreationError struct {
	Reason             error
	DuplicateSubdomain bool
}

func (e *TenantCreationError) Error() string {
	if e.DuplicateSubdomain {
		return fmt.Sprintf("tenant creation failed: duplicate subdomain: %v", e.Reason)
	}
	return fmt.Sprintf("tenant creation failed: %v", e.Reason)
}

func (e *TenantCreationError) Unwrap() error { return e.Reason }

// UserLinkError reports a failure linking the user to the tenant (saga step 3).
type UserLinkError struct {
	Reason error
}

func (e *UserLinkError) Error() string {
	return fmt.Sprintf("user link failed: %v", e.Reason)
}

func (e *UserLinkError) Unwrap() error { return e.Reason }

// ValidationError reports rejected provisioning input. Nothing was attempted.
type ValidationError struct {
	Field  string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }
