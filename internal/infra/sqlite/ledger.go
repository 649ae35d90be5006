package sqlite

import (
	"database/sql"
	"time"

	"github.com/studypact/studypact/internal/domain"
)

// ─── Ledger Operations ──────────────────────────────────────────────────────

// execer lets entry writes run on the pool or inside a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// InsertEntry appends a ledger entry.
func (db *DB) InsertEntry(e domain.LedgerEntry) error {
	return insertEntry(db.db, e)
}

// InsertEntryIfAbsent appends an entry unless its idempotency key is
// already present. Returns false when the key was taken — the caller
// treats that as "already processed", never as an error.
func (db *DB) InsertEntryIfAbsent(e domain.LedgerEntry) (bool, error) {
	return insertEntryIfAbsent(db.db, e)
}

func insertEntry(ex execer, e domain.LedgerEntry) error {
	_, err := ex.Exec(`
		INSERT INTO ledger_entries (id, user, from_user, reason, points, category, task_id, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.User, e.FromUser, e.Reason, e.Points, string(e.Category), nullable(e.TaskID), nullable(e.IdempotencyKey), e.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func insertEntryIfAbsent(ex execer, e domain.LedgerEntry) (bool, error) {
	res, err := ex.Exec(`
		INSERT OR IGNORE INTO ledger_entries (id, user, from_user, reason, points, category, task_id, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.User, e.FromUser, e.Reason, e.Points, string(e.Category), nullable(e.TaskID), nullable(e.IdempotencyKey), e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SumPointsForUser returns the raw signed sum of a user's entries.
// Flooring at zero is the balance calculator's job, not the store's.
func (db *DB) SumPointsForUser(user string) (int64, error) {
	var sum sql.NullInt64
	err := db.db.QueryRow(`
		SELECT SUM(points) FROM ledger_entries WHERE user = ?
	`, user).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Int64, nil
}

// EntriesForUser returns a user's entries, newest first.
func (db *DB) EntriesForUser(user string) ([]domain.LedgerEntry, error) {
	rows, err := db.db.Query(`
		SELECT id, user, from_user, reason, points, category, task_id, idempotency_key, created_at
		FROM ledger_entries WHERE user = ? ORDER BY created_at DESC
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var result []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var category, createdStr string
		var taskID, key sql.NullString
		if err := rows.Scan(&e.ID, &e.User, &e.FromUser, &e.Reason, &e.Points, &category, &taskID, &key, &createdStr); err != nil {
			return nil, err
		}
		e.Category = domain.Category(category)
		e.TaskID = taskID.String
		e.IdempotencyKey = key.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		result = append(result, e)
	}
	return result, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
