package persistence

import "embed"

const MigrationsDir = "migrations"

// Migrations holds the goose migrations for the validity tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS
