package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"erp-control-plane/internal/audit"
	auditrepo "erp-control-plane/internal/audit/repository"
	"erp-control-plane/internal/config"
	"erp-control-plane/internal/db"
	identityrepo "erp-control-plane/internal/identity/repository"
	identityservice "erp-control-plane/internal/identity/service"
	"erp-control-plane/internal/platform/rbac"
	orderrepo "erp-control-plane/internal/productionorder/repository"
	"erp-control-plane/internal/provisioning"
	"erp-control-plane/internal/security"
	"erp-control-plane/internal/server"
	"erp-control-plane/internal/server/middleware"
	sessionrepo "erp-control-plane/internal/session/repository"
	taskrepo "erp-control-plane/internal/task/repository"
	"erp-control-plane/internal/telemetry"
	oteltelemetry "erp-control-plane/internal/telemetry/otel"
	tenantrepo "erp-control-plane/internal/tenant/repository"
	userrepo "erp-control-plane/internal/user/repository"
	userservice "erp-control-plane/internal/user/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := telemetry.NewLogger(cfg.Env)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loggerProvider, otelShutdown, err := oteltelemetry.InitProviders(ctx, oteltelemetry.Config{
		ServiceName: "erp-control-plane",
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	identities := identityrepo.NewPostgresRepository(database)
	users := userrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	tenants := tenantrepo.NewPostgresRepository(database)
	audits := auditrepo.NewPostgresRepository(database)
	tasks := taskrepo.NewPostgresRepository(database)
	orders := orderrepo.NewPostgresRepository(database)

	auth := identityservice.NewAuthService(identities, users, sessions, hasher, tokens, cfg.PasswordMinLength, cfg.RefreshTTL())
	auditLog := audit.NewLogger(audits, middleware.ClientIP, logger).
		WithEmitter(oteltelemetry.NewEventEmitter(loggerProvider))
	saga := provisioning.NewSaga(auth, tenants, users, auditLog, logger, cfg.PasswordMinLength)
	gate := rbac.NewGate(users, tenants)
	profiles := userservice.NewProfileService(users)

	router := server.NewRouter(server.Deps{
		Tokens:    tokens,
		Auth:      auth,
		Saga:      saga,
		Gate:      gate,
		Profiles:  profiles,
		Tenants:   tenants,
		Tasks:     tasks,
		Orders:    orders,
		Audit:     auditLog,
		AuditLogs: audits,
		Pinger:    database,
		Logger:    logger,
	})

	if err := server.Run(ctx, cfg.HTTPAddr, router, logger); err != nil {
		log.Fatalf("serve: %v", err)
	}
	logger.Info("http server stopped")
}
