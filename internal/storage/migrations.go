package storage

import (
	"database/sql"
	"fmt"
)

// migration is one schema step. Steps apply strictly in version order and
// are recorded in schema_migrations so reruns skip them.
type migration struct {
	version int
	name    string
	up      func(tx *sql.Tx) error
}

var schema = []migration{
	{version: 1, name: "initial_schema", up: migrateV001},
}

// MigrationRunner brings a SQLite database up to the current schema.
type MigrationRunner struct {
	db *sql.DB
}

func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

// Run sets the connection pragmas (WAL journal, foreign keys) and applies
// every schema step newer than the recorded version, each in its own
// transaction.
func (r *MigrationRunner) Run() error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := r.db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	current, err := r.Version()
	if err != nil {
		return err
	}

	for _, m := range schema {
		if m.version <= current {
			continue
		}
		if err := r.applyOne(m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return nil
}

// Version returns the highest applied schema version, zero for a fresh
// database.
func (r *MigrationRunner) Version() (int, error) {
	var v sql.NullInt64
	err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// applyOne runs a single step and records it, atomically.
func (r *MigrationRunner) applyOne(m migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.up(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.version, m.name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
