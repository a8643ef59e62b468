// Package middleware holds the HTTP cross-cutting pieces shared by every
// handler: bearer authentication, request-scoped identity context, structured
// request logging, and the error-to-status mapping.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/security"
)

const bearerPrefix = "bearer "

// RequireAuth returns middleware that validates the Bearer (access) token and
// sets identity_id, tenant_id, session_id on the request context. Requests
// without a valid token are rejected with 401; token validation is stateless,
// session liveness is checked where it matters (introspection, sign-out).
func RequireAuth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errBody("unauthenticated", "missing or invalid authorization"))
			return
		}
		sessionID, identityID, tenantID, err := tokens.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errBody("unauthenticated", "missing or invalid authorization"))
			return
		}
		ctx := WithIdentity(c.Request.Context(), identityID, tenantID, sessionID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CaptureClientIP stores the client IP on the request context so code below
// the transport (audit logging) can read it without seeing gin.
func CaptureClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// RequestLogger logs one structured line per request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		)
	}
}

// BearerToken returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func BearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
