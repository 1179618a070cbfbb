package storage

import "database/sql"

// migrateV001 creates the initial notifylog schema. Every statement uses
// IF NOT EXISTS for idempotency.
//
// Timestamps are stored as epoch milliseconds: received_time is assigned by
// the store at insert and drives the history ordering, posted_time is
// whatever the event source reported and is part of the mark-cleared key.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS notifications (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			package_name  TEXT NOT NULL,
			app_name      TEXT,
			title         TEXT,
			content       TEXT,
			posted_time   INTEGER NOT NULL DEFAULT 0,
			received_time INTEGER NOT NULL,
			is_cleared    BOOLEAN NOT NULL DEFAULT 0
		)`,

		// ── Indexes ────────────────────────────────────────────
		// (package_name, posted_time) backs mark-cleared updates; the
		// single-column indexes back the filter predicates.

		`CREATE INDEX IF NOT EXISTS idx_notifications_received     ON notifications(received_time)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_package      ON notifications(package_name)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_posted       ON notifications(posted_time)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_pkg_posted   ON notifications(package_name, posted_time)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_pkg_received ON notifications(package_name, received_time)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
