// orphans lists provisioning orphans: identities whose tenant link never
// completed and whose compensation failed. Operators run it after alerts on
// provision.compensation_failed audit events, then clean up by hand.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	auditrepo "erp-control-plane/internal/audit/repository"
	"erp-control-plane/internal/config"
	"erp-control-plane/internal/db"
	"erp-control-plane/internal/provisioning"
	userrepo "erp-control-plane/internal/user/repository"
)

const auditWindow = 30 * 24 * time.Hour

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
	cutoff := time.Now().UTC().Add(-cfg.OrphanGrace())
	users := userrepo.NewPostgresRepository(conn)
	orphans, err := users.ListUnlinkedBefore(ctx, cutoff)
	if err != nil {
		log.Fatalf("list orphans: %v", err)
	}

	if len(orphans) == 0 {
		fmt.Println("no provisioning orphans")
	} else {
		fmt.Printf("%d provisioning orphan(s) older than %s:\n", len(orphans), cfg.OrphanGrace())
		for _, u := range orphans {
			fmt.Printf("  %s  %s  created %s\n", u.ID, u.Email, u.CreatedAt.Format(time.RFC3339))
		}
	}

	// Failed compensations name the undo step that leaked; an orphan row
	// above without a matching event here means the leak is on the provider
	// side, not in our storage.
	audits := auditrepo.NewPostgresRepository(conn)
	failures, err := audits.ListByAction(ctx, provisioning.ActionCompensationFailed, time.Now().UTC().Add(-auditWindow), 100)
	if err != nil {
		log.Fatalf("list compensation failures: %v", err)
	}
	if len(failures) == 0 {
		fmt.Println("no compensation failures in the last 30 days")
		return
	}
	fmt.Printf("%d compensation failure(s) in the last 30 days:\n", len(failures))
	for _, a := range failures {
		fmt.Printf("  %s  identity=%s  %s\n", a.CreatedAt.Format(time.RFC3339), a.UserID, a.Metadata)
	}
}
