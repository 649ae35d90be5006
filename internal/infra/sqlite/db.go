// Package sqlite persists the tracker's four record types — weeks, tasks,
// ledger entries, and attendance — behind a single lifecycle-managed
// handle. The handle is opened once at process start and injected into
// every component; there is no ambient global connection state.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the storage handle.
type DB struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database under dir, then runs
// migrations. The returned handle is safe for concurrent use.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := filepath.Join(dir, "studypact.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.db.Close()
}

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS weeks (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			start_date TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id            TEXT PRIMARY KEY,
			week_id       TEXT NOT NULL,
			title         TEXT NOT NULL,
			due_date      TEXT NOT NULL,
			assigned_user TEXT NOT NULL,
			status        TEXT NOT NULL DEFAULT 'Pending',
			created_at    TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_week ON tasks(week_id)`,

		// idempotency_key is UNIQUE: a conditional insert on this column is
		// what makes the absence sweep safe to re-run on every request.
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id              TEXT PRIMARY KEY,
			user            TEXT NOT NULL,
			from_user       TEXT NOT NULL,
			reason          TEXT NOT NULL,
			points          INTEGER NOT NULL,
			category        TEXT NOT NULL DEFAULT 'Penalty',
			task_id         TEXT,
			idempotency_key TEXT UNIQUE,
			created_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_task ON ledger_entries(task_id)`,

		// One row per (user, date); the UNIQUE constraint is the anchor
		// for the conditional status write.
		`CREATE TABLE IF NOT EXISTS attendance (
			id              TEXT PRIMARY KEY,
			user            TEXT NOT NULL,
			date            TEXT NOT NULL,
			arrival_time    TEXT,
			status          TEXT NOT NULL DEFAULT 'Not Arrived',
			penalty_minutes INTEGER NOT NULL DEFAULT 0,
			UNIQUE(user, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// inTx runs fn inside a transaction, committing on nil and rolling back
// otherwise. Status writes and their paired ledger posts go through here
// so a failure leaves no partial state.
func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
