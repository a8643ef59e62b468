package middleware

import "context"

type contextKey struct{ name string }

var (
	identityIDKey = contextKey{"identity_id"}
	tenantIDKey   = contextKey{"tenant_id"}
	sessionIDKey  = contextKey{"session_id"}
	clientIPKey   = contextKey{"client_ip"}
)

// WithIdentity returns a context with identity_id, tenant_id, and session_id set.
// Handlers and services can read these via GetIdentityID, GetTenantID, GetSessionID.
func WithIdentity(ctx context.Context, identityID, tenantID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, identityIDKey, identityID)
	ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return ctx
}

// GetIdentityID returns the identity_id from context and true if set; otherwise "", false.
func GetIdentityID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityIDKey).(string)
	return v, ok
}

// GetTenantID returns the tenant_id claim from context and true if set; otherwise "", false.
// This is what the access token asserted, not what storage currently says;
// tenant-scoped handlers must still pass it through the access gate.
func GetTenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// WithClientIP returns a context carrying the request's client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP from context, or "" if not set. Satisfies
// audit.IPExtractor.
func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
