package sqlite

import (
	"database/sql"
	"time"

	"github.com/studypact/studypact/internal/domain"
)

// ─── Week Operations ────────────────────────────────────────────────────────

// InsertWeek creates a week.
func (db *DB) InsertWeek(w domain.Week) error {
	_, err := db.db.Exec(`
		INSERT INTO weeks (id, title, start_date, created_at)
		VALUES (?, ?, ?, ?)
	`, w.ID, w.Title, w.StartDate, w.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// ListWeeks returns all weeks with their tasks, newest start date first.
func (db *DB) ListWeeks() ([]domain.Week, error) {
	rows, err := db.db.Query(`
		SELECT id, title, start_date, created_at
		FROM weeks ORDER BY start_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weeks []domain.Week
	for rows.Next() {
		var w domain.Week
		var createdStr string
		if err := rows.Scan(&w.ID, &w.Title, &w.StartDate, &createdStr); err != nil {
			return nil, err
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		weeks = append(weeks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range weeks {
		tasks, err := db.TasksForWeek(weeks[i].ID)
		if err != nil {
			return nil, err
		}
		weeks[i].Tasks = tasks
	}
	return weeks, nil
}

// DeleteWeek removes a week, its tasks, and every ledger entry linked to
// any of those tasks, in one transaction. Deleting a week deliberately
// reverses the financial consequences of its tasks.
func (db *DB) DeleteWeek(id string) error {
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM weeks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(`
			DELETE FROM ledger_entries
			WHERE task_id IN (SELECT id FROM tasks WHERE week_id = ?)
		`, id); err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM tasks WHERE week_id = ?`, id)
		return err
	})
}

// ─── Task Operations ────────────────────────────────────────────────────────

// InsertTask creates a task under its week.
func (db *DB) InsertTask(t domain.Task) error {
	var exists int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM weeks WHERE id = ?`, t.WeekID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	_, err = db.db.Exec(`
		INSERT INTO tasks (id, week_id, title, due_date, assigned_user, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.WeekID, t.Title, t.DueDate, t.AssignedUser, string(t.Status), t.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// GetTask retrieves a task by id.
func (db *DB) GetTask(id string) (*domain.Task, error) {
	var t domain.Task
	var status, createdStr string
	err := db.db.QueryRow(`
		SELECT id, week_id, title, due_date, assigned_user, status, created_at
		FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.WeekID, &t.Title, &t.DueDate, &t.AssignedUser, &status, &createdStr)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return &t, nil
}

// TasksForWeek returns a week's tasks in creation order.
func (db *DB) TasksForWeek(weekID string) ([]domain.Task, error) {
	rows, err := db.db.Query(`
		SELECT id, week_id, title, due_date, assigned_user, status, created_at
		FROM tasks WHERE week_id = ? ORDER BY created_at
	`, weekID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		var t domain.Task
		var status, createdStr string
		if err := rows.Scan(&t.ID, &t.WeekID, &t.Title, &t.DueDate, &t.AssignedUser, &status, &createdStr); err != nil {
			return nil, err
		}
		t.Status = domain.TaskStatus(status)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		result = append(result, t)
	}
	return result, rows.Err()
}

// FinishTask moves a task out of Pending and, when entry is non-nil,
// posts the paired ledger entry in the same transaction. The update is
// conditional on the task still being Pending: a second completion
// attempt returns domain.ErrAlreadyResolved, a missing task
// domain.ErrNotFound.
func (db *DB) FinishTask(id string, status domain.TaskStatus, entry *domain.LedgerEntry) error {
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE tasks SET status = ? WHERE id = ? AND status = 'Pending'
		`, string(status), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var exists int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&exists); err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrAlreadyResolved
		}
		if entry == nil {
			return nil
		}
		return insertEntry(tx, *entry)
	})
}

// DeleteTask removes a task and every ledger entry linked to it.
func (db *DB) DeleteTask(id string) error {
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		_, err = tx.Exec(`DELETE FROM ledger_entries WHERE task_id = ?`, id)
		return err
	})
}
