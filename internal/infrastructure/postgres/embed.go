package postgres

import "embed"

// MigrationFS embeds the SQL migration files. Used by the migrate runner
// (cmd/migrate) to apply schema changes.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
