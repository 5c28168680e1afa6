package db

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// getMigrationsFS returns the migration SQL files as a filesystem rooted at
// the migrations directory. The files are embedded so a deployed binary can
// migrate its own database without a source checkout.
func getMigrationsFS() (fs.FS, error) {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return sub, nil
}

// MigrationsFS exposes the embedded migrations for callers outside this
// package, such as the startup version check in cmd/camwatch.
func MigrationsFS() (fs.FS, error) {
	return getMigrationsFS()
}
