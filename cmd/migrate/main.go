// Command migrate applies or reverts the embedded schema migrations.
//
//	go run ./cmd/migrate -direction up
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"erp-control-plane/internal/config"
	"erp-control-plane/internal/db/migrate"
)

func main() {
	dirFlag := flag.String("direction", "up", "up applies pending migrations, down reverts them")
	flag.Parse()

	dir, err := migrate.ParseDirection(*dirFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; copy .env.example to .env or export it")
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, dir); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
