package pg

import (
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationInfo reports what ApplyMigrations did.
type MigrationInfo struct {
	Applied        bool
	CurrentVersion uint
	FinalVersion   uint
	Dirty          bool
}

// ApplyMigrations brings the database at dsn up to the latest migration under
// migrationsPath (for example "file://migrations/global"). Safe to re-run:
// an already up-to-date database is not an error.
func ApplyMigrations(dsn, migrationsPath string) (MigrationInfo, error) {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		_, _ = sourceErr, dbErr
	}()

	info := MigrationInfo{}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationInfo{}, fmt.Errorf("failed to get current version: %w", err)
	}
	info.CurrentVersion = currentVersion
	info.Dirty = dirty

	if dirty {
		return info, fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return info, nil
		}
		return info, fmt.Errorf("failed to apply migrations: %w", err)
	}

	info.Applied = true
	if finalVersion, _, err := m.Version(); err == nil {
		info.FinalVersion = finalVersion
	}
	return info, nil
}

// ApplyTenantMigrations runs the tenant migration set inside one building's
// schema by pinning search_path. Each schema keeps its own migration version
// table, so tenants upgrade independently.
func ApplyTenantMigrations(dsn, migrationsPath, schema string) (MigrationInfo, error) {
	scoped, err := WithSearchPath(dsn, schema)
	if err != nil {
		return MigrationInfo{}, err
	}
	return ApplyMigrations(scoped, migrationsPath)
}
