// Package store persists the durable mapping between projects and their
// cluster resources: generated sandbox and database cluster names, plus the
// last reconciled status. The cluster remains the status authority; rows
// here exist so UI reads stay cheap.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"sort"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// StatusCreating is the only status the store originates itself: it marks a
// project whose cluster resources have not been provisioned yet. Every other
// status value is written by the reconciler from live cluster state.
const StatusCreating = "CREATING"

// DB wraps a *sql.DB with migration support.
type DB struct {
	*sql.DB
}

// Open connects to PostgreSQL, verifies the connection, and brings the
// schema current before returning.
func Open(databaseURL string) (*DB, error) {
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	db := &DB{DB: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return db, nil
}

// migrate applies any embedded migration files not yet recorded in
// schema_migrations, in lexical order. Each file runs inside its own
// transaction together with the bookkeeping row, so a failed migration
// leaves no partial state behind.
func (db *DB) migrate() error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", name).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		if err := db.applyMigration(name); err != nil {
			return err
		}
		log.Printf("store: applied migration %s", name)
	}
	return nil
}

func (db *DB) applyMigration(name string) error {
	content, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("migration %s: %w", name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES ($1)", name); err != nil {
		return fmt.Errorf("migration %s: record version: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", name, err)
	}
	return nil
}
