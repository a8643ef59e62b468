// Package server wires the HTTP surface: routes, middleware, and graceful
// shutdown.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/audit"
	audithandler "erp-control-plane/internal/audit/handler"
	identityhandler "erp-control-plane/internal/identity/handler"
	identityservice "erp-control-plane/internal/identity/service"
	"erp-control-plane/internal/platform/rbac"
	orderhandler "erp-control-plane/internal/productionorder/handler"
	orderrepo "erp-control-plane/internal/productionorder/repository"
	"erp-control-plane/internal/provisioning"
	"erp-control-plane/internal/security"
	"erp-control-plane/internal/server/middleware"
	taskhandler "erp-control-plane/internal/task/handler"
	taskrepo "erp-control-plane/internal/task/repository"
	tenanthandler "erp-control-plane/internal/tenant/handler"
	userhandler "erp-control-plane/internal/user/handler"
	userservice "erp-control-plane/internal/user/service"
)

// Pinger is the readiness check dependency (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the service dependencies for HTTP handlers.
type Deps struct {
	Tokens   *security.TokenProvider
	Auth     *identityservice.AuthService
	Saga     *provisioning.Saga
	Gate     *rbac.Gate
	Profiles *userservice.ProfileService
	Tenants  tenanthandler.TenantDirectory
	Tasks    taskrepo.Repository
	Orders   orderrepo.Repository
	// Audit receives sign-in events. May be nil.
	Audit audit.AuditLogger
	// AuditLogs backs the admin-only audit listing. May be nil to disable it.
	AuditLogs audithandler.LogReader
	// Pinger is used by /healthz for readiness. If nil, the DB ping is skipped.
	Pinger Pinger
	Logger *slog.Logger
}

// NewRouter builds the gin engine with all routes registered.
//
// Route → handler mapping:
//   - /v1/auth               → internal/identity/handler
//   - /v1/me                 → internal/user/handler
//   - /v1/tenants            → internal/tenant/handler
//   - /v1/tasks              → internal/task/handler
//   - /v1/production-orders  → internal/productionorder/handler
//   - /healthz               → this package
func NewRouter(deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CaptureClientIP())

	r.GET("/healthz", healthz(deps.Pinger))

	requireAuth := middleware.RequireAuth(deps.Tokens)
	v1 := r.Group("/v1")
	identityhandler.NewHandler(deps.Auth, deps.Saga, deps.Audit).Register(v1, requireAuth)
	userhandler.NewHandler(deps.Gate, deps.Profiles).Register(v1, requireAuth)
	tenanthandler.NewHandler(deps.Gate, deps.Tenants).Register(v1, requireAuth)
	taskhandler.NewHandler(deps.Gate, deps.Tasks).Register(v1, requireAuth)
	orderhandler.NewHandler(deps.Gate, deps.Orders).Register(v1, requireAuth)
	if deps.AuditLogs != nil {
		audithandler.NewHandler(deps.Gate, deps.AuditLogs).Register(v1, requireAuth)
	}
	return r
}

func healthz(pinger Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Run serves the router on addr until ctx is cancelled, then shuts down
// gracefully with a 10s drain.
func Run(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
