// seed provisions a development tenant with its admin user for local testing.
// Idempotent: exits cleanly if the dev identity (dev@example.com) already
// exists. Runs the same provisioning path as signup, so a seeded database
// looks exactly like a provisioned one.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"erp-control-plane/internal/config"
	"erp-control-plane/internal/db"
	identityrepo "erp-control-plane/internal/identity/repository"
	identityservice "erp-control-plane/internal/identity/service"
	"erp-control-plane/internal/provisioning"
	"erp-control-plane/internal/security"
	sessionrepo "erp-control-plane/internal/session/repository"
	tenantrepo "erp-control-plane/internal/tenant/repository"
	userrepo "erp-control-plane/internal/user/repository"
)

const (
	devEmail     = "dev@example.com"
	devPassword  = "password123"
	devTenant    = "Dev Manufacturing"
	devSubdomain = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	identities := identityrepo.NewPostgresRepository(conn)
	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)

	existing, err := identities.GetByEmail(ctx, devEmail)
	if err != nil {
		log.Fatalf("check dev identity: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", devEmail)
		return
	}

	// Token issuance is not exercised by seeding; the auth service only needs
	// the hasher and repositories here.
	auth := identityservice.NewAuthService(identities, users, sessions,
		security.NewHasher(cfg.BcryptCost), nil, cfg.PasswordMinLength, cfg.RefreshTTL())
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	saga := provisioning.NewSaga(auth, tenants, users, nil, logger, cfg.PasswordMinLength)

	res, err := saga.Provision(ctx, provisioning.ProvisionRequest{
		Email:      devEmail,
		Password:   devPassword,
		TenantName: devTenant,
		Subdomain:  devSubdomain,
		FirstName:  "Dev",
		LastName:   "Admin",
	})
	if err != nil {
		log.Fatalf("seed: provision: %v", err)
	}
	log.Printf("seed: tenant %s (%s) with admin %s", res.Tenant.Name, res.Tenant.Subdomain, devEmail)
}
