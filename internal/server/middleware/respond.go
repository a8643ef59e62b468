package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	identitysvc "erp-control-plane/internal/identity/service"
	"erp-control-plane/internal/platform/rbac"
	orderrepo "erp-control-plane/internal/productionorder/repository"
	"erp-control-plane/internal/provisioning"
	"erp-control-plane/internal/security"
	usersvc "erp-control-plane/internal/user/service"
)

// errBody is the single error envelope for the whole HTTP surface.
func errBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// BadRequest renders a 400 with the standard envelope. Handlers use it for
// request binding failures.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errBody("invalid_argument", message))
}

// RespondError maps a service or gate error to exactly one outward status.
// Unknown errors become an opaque 500; their detail stays in logs, not bodies.
func RespondError(c *gin.Context, err error) {
	var valErr *provisioning.ValidationError
	var tenantErr *provisioning.TenantCreationError
	var authErr *provisioning.AuthCreationError
	var linkErr *provisioning.UserLinkError
	var profileErr *usersvc.ValidationError

	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, errBody("invalid_argument", valErr.Error()))
	case errors.As(err, &profileErr):
		c.JSON(http.StatusBadRequest, errBody("invalid_argument", profileErr.Error()))
	case errors.As(err, &tenantErr):
		if tenantErr.DuplicateSubdomain {
			c.JSON(http.StatusConflict, errBody("subdomain_taken", "subdomain already taken"))
			return
		}
		c.JSON(http.StatusInternalServerError, errBody("tenant_creation_failed", "tenant creation failed"))
	case errors.As(err, &authErr):
		if errors.Is(err, identitysvc.ErrEmailAlreadyRegistered) {
			c.JSON(http.StatusConflict, errBody("email_taken", "email already registered"))
			return
		}
		c.JSON(http.StatusBadGateway, errBody("auth_creation_failed", "account creation failed"))
	case errors.As(err, &linkErr):
		c.JSON(http.StatusInternalServerError, errBody("user_link_failed", "user link failed"))

	case errors.Is(err, identitysvc.ErrEmailAlreadyRegistered):
		c.JSON(http.StatusConflict, errBody("email_taken", "email already registered"))
	case errors.Is(err, identitysvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errBody("invalid_credentials", "invalid credentials"))
	case errors.Is(err, identitysvc.ErrInvalidRefreshToken),
		errors.Is(err, identitysvc.ErrRefreshTokenReuse),
		errors.Is(err, identitysvc.ErrSessionRevoked),
		errors.Is(err, security.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, errBody("unauthenticated", "invalid or expired token"))
	case errors.Is(err, identitysvc.ErrInvalidResetToken):
		c.JSON(http.StatusBadRequest, errBody("invalid_reset_token", "invalid or expired reset token"))
	case errors.Is(err, identitysvc.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, errBody("not_found", "session not found"))

	case errors.Is(err, rbac.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errBody("unauthenticated", "authentication required"))
	case errors.Is(err, rbac.ErrIncompleteProvisioning):
		c.JSON(http.StatusForbidden, errBody("incomplete_provisioning", "identity has no membership record"))
	case errors.Is(err, rbac.ErrNoTenant):
		c.JSON(http.StatusForbidden, errBody("no_tenant", "not provisioned into a tenant"))
	case errors.Is(err, rbac.ErrForbidden):
		c.JSON(http.StatusForbidden, errBody("forbidden", "forbidden"))

	case errors.Is(err, usersvc.ErrUserNotFound):
		c.JSON(http.StatusNotFound, errBody("not_found", "user not found"))
	case errors.Is(err, orderrepo.ErrOrderNumberTaken):
		c.JSON(http.StatusConflict, errBody("order_number_taken", "order number already taken"))

	default:
		c.JSON(http.StatusInternalServerError, errBody("internal", "internal error"))
	}
}
