// Package sqlite - database migrations
package sqlite

import (
	"database/sql"
	"fmt"
)

// Migration represents a single additive, idempotent schema migration run
// after the base schema has been created.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

// migrationsList is the ordered list of all migrations to run. schema.go's
// CREATE TABLE IF NOT EXISTS statements cover a fresh database; entries here
// are for additive changes to a database created by an earlier schema
// version. Migrations must never reorder or remove existing columns.
var migrationsList = []Migration{}

// snapshot is a coarse pre/post migration row-count check: migrations that
// accidentally drop rows (e.g. via a mistaken DROP TABLE/recreate) are
// caught before the transaction commits.
type snapshot struct {
	artifacts int
	claims    int
}

func captureSnapshot(db *sql.DB) (snapshot, error) {
	var s snapshot
	if err := db.QueryRow(`SELECT COUNT(*) FROM artifacts`).Scan(&s.artifacts); err != nil {
		return s, fmt.Errorf("snapshot artifacts: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM blueprint_claims`).Scan(&s.claims); err != nil {
		return s, fmt.Errorf("snapshot claims: %w", err)
	}
	return s, nil
}

func verifyInvariants(db *sql.DB, before snapshot) error {
	after, err := captureSnapshot(db)
	if err != nil {
		return err
	}
	if after.artifacts < before.artifacts {
		return fmt.Errorf("migration dropped artifacts: had %d, now %d", before.artifacts, after.artifacts)
	}
	if after.claims < before.claims {
		return fmt.Errorf("migration dropped claims: had %d, now %d", before.claims, after.claims)
	}
	return nil
}

// RunMigrations creates the base schema if absent and then runs every
// registered migration in order, inside a single EXCLUSIVE transaction so
// concurrent process startups can't race on check-then-modify DDL (the
// teacher's RunMigrations carries the same guard, citing GH#720).
func RunMigrations(db *sql.DB) error {
	// PRAGMA foreign_keys must be toggled outside any transaction.
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock for migrations: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply base schema: %w", err)
	}

	before, err := captureSnapshot(db)
	if err != nil {
		return fmt.Errorf("failed to capture pre-migration snapshot: %w", err)
	}

	for _, migration := range migrationsList {
		if err := migration.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
	}

	if err := verifyInvariants(db, before); err != nil {
		return fmt.Errorf("post-migration validation failed: %w", err)
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	committed = true

	return nil
}
