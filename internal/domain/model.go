// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"time"
)

// SystemUser is the author of entries posted by automatic rules
// (absence sweeps, lateness penalties, task rewards).
const SystemUser = "System"

// ─── User Pair ──────────────────────────────────────────────────────────────

// Pair is the closed set of the two tracked users. There is no user
// registry; every operation involves one of these two identities and
// "the other" is always well defined.
type Pair struct {
	A string
	B string
}

// Contains reports whether u is one of the two users.
func (p Pair) Contains(u string) bool {
	return u == p.A || u == p.B
}

// Other returns the counterpart of u. Callers must validate u with
// Contains first; Other on an unknown user returns A.
func (p Pair) Other(u string) string {
	if u == p.A {
		return p.B
	}
	return p.A
}

// Users returns both users in declaration order.
func (p Pair) Users() [2]string {
	return [2]string{p.A, p.B}
}

// ─── Ledger Types ───────────────────────────────────────────────────────────

// Category classifies a ledger entry by money direction.
type Category string

const (
	CategoryPenalty    Category = "Penalty"
	CategoryRedemption Category = "Redemption"
)

// LedgerEntry is a single signed point movement. Entries are immutable
// once created; the only way one disappears is the cascade when its
// related task is deleted.
type LedgerEntry struct {
	ID             string    `json:"id"`
	User           string    `json:"user"`      // whose balance the points land on
	FromUser       string    `json:"from_user"` // who caused the movement (a user or System)
	Reason         string    `json:"reason"`
	Points         int64     `json:"points"` // signed; negative only for redemptions
	Category       Category  `json:"category"`
	TaskID         string    `json:"task_id,omitempty"`
	IdempotencyKey string    `json:"-"` // set only on automatic entries
	CreatedAt      time.Time `json:"created_at"`
}

// AutoBunkKey is the idempotency key for an automatic absence penalty.
// It is deterministic in (user, date) so a re-run of the sweep can never
// post the same penalty twice.
func AutoBunkKey(user, date string) string {
	return fmt.Sprintf("auto-%s-%s", user, date)
}

// ─── Attendance Types ───────────────────────────────────────────────────────

// AttendanceStatus is the per-day arrival state of a user.
type AttendanceStatus string

const (
	StatusNotArrived AttendanceStatus = "Not Arrived"
	StatusPresent    AttendanceStatus = "Present"
	StatusBunked     AttendanceStatus = "Bunked"
)

// AttendanceRecord tracks one user on one calendar date. A day starts
// implicitly as Not Arrived (no row needed); the record is created when
// the day resolves to Present or Bunked, and never changes after that.
type AttendanceRecord struct {
	ID             string           `json:"id"`
	User           string           `json:"user"`
	Date           string           `json:"date"` // YYYY-MM-DD, local calendar date
	ArrivalTime    *time.Time       `json:"arrival_time,omitempty"`
	Status         AttendanceStatus `json:"status"`
	PenaltyMinutes int              `json:"penalty_minutes"`
}

// Resolved reports whether the day's outcome is already recorded.
func (r *AttendanceRecord) Resolved() bool {
	return r.Status == StatusPresent || r.Status == StatusBunked
}

// ─── Task and Week Types ────────────────────────────────────────────────────

// TaskStatus is the completion state of a task.
type TaskStatus string

const (
	TaskPending         TaskStatus = "Pending"
	TaskCompletedOnTime TaskStatus = "Completed On Time"
	TaskCompletedLate   TaskStatus = "Completed Late"
)

// Task is a study goal assigned to one user under a week.
type Task struct {
	ID           string     `json:"id"`
	WeekID       string     `json:"week_id"`
	Title        string     `json:"title"`
	DueDate      string     `json:"due_date"` // YYYY-MM-DD, date only
	AssignedUser string     `json:"assigned_user"`
	Status       TaskStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Week groups tasks. It owns them: deleting a week deletes its tasks
// and every ledger entry linked to any of them.
type Week struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate string    `json:"start_date"` // YYYY-MM-DD
	CreatedAt time.Time `json:"created_at"`
	Tasks     []Task    `json:"tasks"`
}

// DueEndOfDay returns the last instant of the task's due date in the
// given location. "Late" means strictly after this instant.
func (t *Task) DueEndOfDay(loc *time.Location) (time.Time, error) {
	due, err := time.ParseInLocation(time.DateOnly, t.DueDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date %q: %w", t.DueDate, err)
	}
	return due.Add(24*time.Hour - time.Millisecond), nil
}
