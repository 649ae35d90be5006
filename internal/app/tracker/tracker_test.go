package tracker

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/studypact/studypact/internal/domain"
	"github.com/studypact/studypact/internal/infra/sqlite"
)

// fakeClock pins the engine to an exact instant.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

// Reference dates: 2024-01-08 is a Monday (session 17:00, grace cutoff
// 18:40), 2024-01-07 is a Sunday (no session).
var (
	monday = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	sunday = time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
)

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}

func testSchedule() domain.Schedule {
	return domain.Schedule{
		time.Monday:    {Hour: 17, Minute: 0},
		time.Wednesday: {Hour: 17, Minute: 0},
		time.Thursday:  {Hour: 18, Minute: 30},
		time.Friday:    {Hour: 15, Minute: 0},
	}
}

func newTestService(t *testing.T, now time.Time) (*Service, *fakeClock) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := &fakeClock{t: now}
	cfg := Config{
		Users:            domain.Pair{A: "Kanishk", B: "Anmol"},
		Schedule:         testSchedule(),
		GraceMinutes:     100,
		BunkPenalty:      100,
		LatePointsPerDay: 10,
	}
	return New(db, cfg, clk, zap.NewNop()), clk
}

func mustBalance(t *testing.T, s *Service, user string) int64 {
	t.Helper()
	b, err := s.Balance(user)
	if err != nil {
		t.Fatalf("Balance(%s) error: %v", user, err)
	}
	return b
}

// ─── Sweeper Tests ──────────────────────────────────────────────────────────

func TestSweep_NoSessionToday(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 20, 0))

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if b := mustBalance(t, s, "Kanishk"); b != 0 {
		t.Errorf("balance = %d, want 0 on a no-session day", b)
	}
	if b := mustBalance(t, s, "Anmol"); b != 0 {
		t.Errorf("balance = %d, want 0 on a no-session day", b)
	}
}

func TestSweep_BeforeCutoff(t *testing.T) {
	// 18:40 is the cutoff; at 18:40 exactly it is still too early.
	for _, tc := range []struct {
		name string
		now  time.Time
	}{
		{"before start", at(monday, 16, 0)},
		{"within grace", at(monday, 18, 0)},
		{"exactly at cutoff", at(monday, 18, 40)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestService(t, tc.now)
			if err := s.Sweep(); err != nil {
				t.Fatalf("Sweep() error: %v", err)
			}
			records, err := s.db.AttendanceOn("2024-01-08")
			if err != nil {
				t.Fatal(err)
			}
			if len(records) != 0 {
				t.Errorf("sweep before cutoff created %d records", len(records))
			}
		})
	}
}

func TestSweep_MarksBothAbsent(t *testing.T) {
	s, _ := newTestService(t, at(monday, 19, 0))

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	records, err := s.db.AttendanceOn("2024-01-08")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Status != domain.StatusBunked {
			t.Errorf("%s status = %q, want Bunked", rec.User, rec.Status)
		}
	}

	// Each user's absence credits the other 100 points.
	if b := mustBalance(t, s, "Kanishk"); b != 100 {
		t.Errorf("Kanishk balance = %d, want 100", b)
	}
	if b := mustBalance(t, s, "Anmol"); b != 100 {
		t.Errorf("Anmol balance = %d, want 100", b)
	}
}

func TestSweep_Idempotent(t *testing.T) {
	s, _ := newTestService(t, at(monday, 19, 0))

	if err := s.Sweep(); err != nil {
		t.Fatalf("first Sweep() error: %v", err)
	}
	if err := s.Sweep(); err != nil {
		t.Fatalf("second Sweep() error: %v", err)
	}

	for _, user := range []string{"Kanishk", "Anmol"} {
		entries, err := s.db.EntriesForUser(user)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("%s has %d entries, want exactly 1 after double sweep", user, len(entries))
		}
	}
}

func TestSweep_SkipsResolvedDays(t *testing.T) {
	s, clk := newTestService(t, at(monday, 16, 30))

	// Kanishk checks in before the session starts.
	if _, err := s.CheckIn("Kanishk"); err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}

	clk.t = at(monday, 19, 0)
	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	rec, err := s.db.AttendanceFor("Kanishk", "2024-01-08")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != domain.StatusPresent {
		t.Errorf("Kanishk status = %q, sweep must not touch a resolved day", rec.Status)
	}

	// Only Anmol's absence fired: 100 points to Kanishk, zero-point
	// check-in log aside, nothing new for Anmol.
	if b := mustBalance(t, s, "Kanishk"); b != 100 {
		t.Errorf("Kanishk balance = %d, want 100", b)
	}
	if b := mustBalance(t, s, "Anmol"); b != 0 {
		t.Errorf("Anmol balance = %d, want 0", b)
	}
}

// ─── Check-In Tests ─────────────────────────────────────────────────────────

func TestCheckIn_OnTime(t *testing.T) {
	s, _ := newTestService(t, at(monday, 16, 45))

	rec, err := s.CheckIn("Kanishk")
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if rec.Status != domain.StatusPresent {
		t.Errorf("status = %q, want Present", rec.Status)
	}
	if rec.PenaltyMinutes != 0 {
		t.Errorf("penalty = %d, want 0", rec.PenaltyMinutes)
	}
	if rec.ArrivalTime == nil {
		t.Error("arrival time should be set")
	}
	if b := mustBalance(t, s, "Anmol"); b != 0 {
		t.Errorf("on-time arrival moved %d points", b)
	}
}

func TestCheckIn_ExactlyAtStart(t *testing.T) {
	// "Late" requires strictly after the scheduled start.
	s, _ := newTestService(t, at(monday, 17, 0))

	rec, err := s.CheckIn("Kanishk")
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if rec.PenaltyMinutes != 0 {
		t.Errorf("penalty = %d, want 0 at the exact start time", rec.PenaltyMinutes)
	}
}

func TestCheckIn_Late(t *testing.T) {
	// 17:45:30 → 45 full minutes late.
	now := time.Date(2024, 1, 8, 17, 45, 30, 0, time.UTC)
	s, _ := newTestService(t, now)

	rec, err := s.CheckIn("Kanishk")
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if rec.Status != domain.StatusPresent {
		t.Errorf("status = %q, want Present", rec.Status)
	}
	if rec.PenaltyMinutes != 45 {
		t.Errorf("penalty = %d minutes, want 45", rec.PenaltyMinutes)
	}

	// The same integer lands as points on the other user's ledger.
	if b := mustBalance(t, s, "Anmol"); b != 45 {
		t.Errorf("Anmol balance = %d, want 45", b)
	}
	if b := mustBalance(t, s, "Kanishk"); b != 0 {
		t.Errorf("Kanishk balance = %d, want 0", b)
	}
}

func TestCheckIn_OffScheduleDay(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 11, 0))

	rec, err := s.CheckIn("Anmol")
	if err != nil {
		t.Fatalf("CheckIn() error: %v", err)
	}
	if rec.Status != domain.StatusPresent {
		t.Errorf("status = %q, want Present", rec.Status)
	}
	if rec.PenaltyMinutes != 0 {
		t.Errorf("penalty = %d, want 0 off schedule", rec.PenaltyMinutes)
	}

	// A zero-point log entry records the extra session.
	entries, err := s.db.EntriesForUser("Anmol")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Points != 0 {
		t.Errorf("expected one zero-point log entry, got %+v", entries)
	}
}

func TestCheckIn_AlreadyResolved(t *testing.T) {
	s, _ := newTestService(t, at(monday, 16, 45))

	if _, err := s.CheckIn("Kanishk"); err != nil {
		t.Fatalf("first CheckIn() error: %v", err)
	}
	_, err := s.CheckIn("Kanishk")
	if !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("err = %v, want ErrAlreadyResolved", err)
	}
}

func TestCheckIn_AfterAutoBunk(t *testing.T) {
	// Arriving after the sweep has already judged the day is rejected.
	s, _ := newTestService(t, at(monday, 19, 0))

	_, err := s.CheckIn("Kanishk")
	if !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("err = %v, want ErrAlreadyResolved after auto bunk", err)
	}

	rec, _ := s.db.AttendanceFor("Kanishk", "2024-01-08")
	if rec == nil || rec.Status != domain.StatusBunked {
		t.Errorf("record = %+v, want Bunked by the sweep", rec)
	}
}

func TestCheckIn_UnknownUser(t *testing.T) {
	s, _ := newTestService(t, at(monday, 16, 45))
	_, err := s.CheckIn("Stranger")
	if !errors.Is(err, domain.ErrUnknownUser) {
		t.Fatalf("err = %v, want ErrUnknownUser", err)
	}
}

// ─── Bunk Tests ─────────────────────────────────────────────────────────────

func TestBunk(t *testing.T) {
	s, _ := newTestService(t, at(monday, 16, 0))

	rec, err := s.Bunk("Kanishk")
	if err != nil {
		t.Fatalf("Bunk() error: %v", err)
	}
	if rec.Status != domain.StatusBunked {
		t.Errorf("status = %q, want Bunked", rec.Status)
	}

	entries, err := s.db.EntriesForUser("Anmol")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Points != 100 {
		t.Errorf("points = %d, want 100", e.Points)
	}
	// A self-reported bunk is attributed to the bunking user, not System.
	if e.FromUser != "Kanishk" {
		t.Errorf("from_user = %q, want Kanishk", e.FromUser)
	}
	if e.IdempotencyKey != "" {
		t.Errorf("self-reported bunk should carry no idempotency key, got %q", e.IdempotencyKey)
	}
}

func TestBunk_AlreadyResolved(t *testing.T) {
	s, _ := newTestService(t, at(monday, 16, 0))

	if _, err := s.Bunk("Kanishk"); err != nil {
		t.Fatalf("first Bunk() error: %v", err)
	}
	if _, err := s.Bunk("Kanishk"); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("second bunk should reject, got %v", err)
	}
	if _, err := s.CheckIn("Kanishk"); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("check-in after bunk should reject, got %v", err)
	}
}

// ─── Attendance Reads ───────────────────────────────────────────────────────

func TestAttendanceToday_SweepsFirst(t *testing.T) {
	s, _ := newTestService(t, at(monday, 19, 0))

	records, err := s.AttendanceToday()
	if err != nil {
		t.Fatalf("AttendanceToday() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 — the read must reconcile first", len(records))
	}
	for _, rec := range records {
		if rec.Status != domain.StatusBunked {
			t.Errorf("%s status = %q, want Bunked", rec.User, rec.Status)
		}
	}
}

func TestAttendanceToday_EmptyBeforeCutoff(t *testing.T) {
	s, _ := newTestService(t, at(monday, 17, 30))

	records, err := s.AttendanceToday()
	if err != nil {
		t.Fatalf("AttendanceToday() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0 within the grace window", len(records))
	}
}
