package db

import "embed"

// MigrationFS carries the SQL migration set so cmd/migrate needs no files on
// disk at deploy time.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
