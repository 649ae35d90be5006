package sqlite

import (
	"database/sql"
	"time"

	"github.com/studypact/studypact/internal/domain"
)

// ─── Attendance Operations ──────────────────────────────────────────────────

// AttendanceFor returns the record for (user, date), or nil when the day
// is still implicitly Not Arrived.
func (db *DB) AttendanceFor(user, date string) (*domain.AttendanceRecord, error) {
	row := db.db.QueryRow(`
		SELECT id, user, date, arrival_time, status, penalty_minutes
		FROM attendance WHERE user = ? AND date = ?
	`, user, date)

	rec, err := scanAttendance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AttendanceOn returns all records for a calendar date.
func (db *DB) AttendanceOn(date string) ([]domain.AttendanceRecord, error) {
	rows, err := db.db.Query(`
		SELECT id, user, date, arrival_time, status, penalty_minutes
		FROM attendance WHERE date = ? ORDER BY user
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

// ResolveAttendance records the day's outcome for rec's (user, date) and,
// when entry is non-nil, posts the paired ledger entry in the same
// transaction. The status write is conditional: it only lands while the
// day is still unresolved, so a lost race or a repeat call returns
// domain.ErrAlreadyResolved instead of overwriting a terminal status.
// An entry carrying an idempotency key is inserted conditionally too;
// a key replay is silently skipped.
func (db *DB) ResolveAttendance(rec domain.AttendanceRecord, entry *domain.LedgerEntry) error {
	return db.inTx(func(tx *sql.Tx) error {
		var arrival any
		if rec.ArrivalTime != nil {
			arrival = rec.ArrivalTime.Format(time.RFC3339Nano)
		}

		res, err := tx.Exec(`
			INSERT INTO attendance (id, user, date, arrival_time, status, penalty_minutes)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(user, date) DO UPDATE SET
				arrival_time    = excluded.arrival_time,
				status          = excluded.status,
				penalty_minutes = excluded.penalty_minutes
			WHERE attendance.status = 'Not Arrived'
		`, rec.ID, rec.User, rec.Date, arrival, string(rec.Status), rec.PenaltyMinutes)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrAlreadyResolved
		}

		if entry == nil {
			return nil
		}
		if entry.IdempotencyKey != "" {
			_, err := insertEntryIfAbsent(tx, *entry)
			return err
		}
		return insertEntry(tx, *entry)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendance(row rowScanner) (*domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	var arrival sql.NullString
	var status string
	if err := row.Scan(&rec.ID, &rec.User, &rec.Date, &arrival, &status, &rec.PenaltyMinutes); err != nil {
		return nil, err
	}
	rec.Status = domain.AttendanceStatus(status)
	if arrival.Valid {
		t, err := time.Parse(time.RFC3339Nano, arrival.String)
		if err == nil {
			rec.ArrivalTime = &t
		}
	}
	return &rec, nil
}
