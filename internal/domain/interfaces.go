package domain

import "time"

// ─── Clock ──────────────────────────────────────────────────────────────────
// Every time-dependent rule (lateness, grace cutoffs, date bucketing)
// reads the clock through this interface so tests can pin exact instants
// and zones instead of depending on the host's wall clock.

// Clock supplies the current instant in the tracker's local zone.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock in the process-local zone.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// LocalDate buckets an instant into its local calendar date (YYYY-MM-DD).
func LocalDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
