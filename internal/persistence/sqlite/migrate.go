package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one ordered schema change. Versions are applied exactly once
// and recorded in schema_migrations.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create core relations",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS holders (
				id             TEXT PRIMARY KEY,
				display_name   TEXT NOT NULL,
				location       TEXT NOT NULL DEFAULT '',
				rules_accepted INTEGER NOT NULL DEFAULT 0,
				created_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS copies (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				title      TEXT NOT NULL,
				author     TEXT NOT NULL,
				location   TEXT NOT NULL,
				shelf      INTEGER,
				floor      INTEGER,
				state      TEXT NOT NULL DEFAULT 'available'
					CHECK (state IN ('available', 'reserved')),
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS reservations (
				id                       TEXT PRIMARY KEY,
				holder_id                TEXT NOT NULL REFERENCES holders(id),
				copy_id                  INTEGER NOT NULL REFERENCES copies(id),
				title                    TEXT NOT NULL,
				location                 TEXT NOT NULL,
				start_time               TEXT NOT NULL,
				duration                 TEXT NOT NULL,
				end_time                 TEXT NOT NULL,
				status                   TEXT NOT NULL DEFAULT 'active'
					CHECK (status IN ('active', 'completed')),
				extension_used           INTEGER NOT NULL DEFAULT 0,
				overdue_escalated        INTEGER NOT NULL DEFAULT 0,
				last_overdue_notified_at TEXT,
				created_at               TEXT NOT NULL
			)`,
			// One active reservation per copy and per holder, enforced by the
			// storage engine rather than by application bookkeeping.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_active_copy
				ON reservations(copy_id) WHERE status = 'active'`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_active_holder
				ON reservations(holder_id) WHERE status = 'active'`,
			// NOCASE keeps the primary key from admitting the same title in
			// different casing.
			`CREATE TABLE IF NOT EXISTS waitlist (
				holder_id   TEXT NOT NULL REFERENCES holders(id),
				title       TEXT NOT NULL COLLATE NOCASE,
				location    TEXT NOT NULL,
				enqueued_at TEXT NOT NULL,
				notified    INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (holder_id, title, location)
			)`,
		},
	},
	{
		version: 2,
		name:    "create reminder ledger",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS reservation_reminders (
				reservation_id TEXT NOT NULL REFERENCES reservations(id),
				milestone      TEXT NOT NULL,
				sent_at        TEXT NOT NULL,
				PRIMARY KEY (reservation_id, milestone)
			)`,
		},
	},
}

// Migrate applies every pending schema migration in order.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if err := s.pool.WithTx(ctx, func(txCtx context.Context) error {
			conn := s.pool.conn(txCtx)
			for _, stmt := range m.stmts {
				if _, err := conn.ExecContext(txCtx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			if _, err := conn.ExecContext(txCtx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, datetime('now'))`,
				m.version, m.name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) migrationApplied(ctx context.Context, version int) (bool, error) {
	var found int
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT version FROM schema_migrations WHERE version = ?`, version).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return true, nil
}
