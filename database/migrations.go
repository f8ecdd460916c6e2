// Package database holds the embedded SQL migrations for the Oracle schema.
package database

import "embed"

// Migrations contains the numbered *.up.sql and *.down.sql files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that holds the SQL files.
const MigrationsDir = "migrations"
