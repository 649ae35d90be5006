package tracker

import (
	"errors"
	"testing"
	"time"

	"github.com/studypact/studypact/internal/domain"
)

func post(t *testing.T, s *Service, id, user string, points int64) {
	t.Helper()
	err := s.db.InsertEntry(domain.LedgerEntry{
		ID:        id,
		User:      user,
		FromUser:  domain.SystemUser,
		Reason:    "seed",
		Points:    points,
		Category:  domain.CategoryPenalty,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

// ─── Balance Tests ──────────────────────────────────────────────────────────

func TestBalance_SumsEntries(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 12, 0))
	post(t, s, "e1", "Kanishk", 100)
	post(t, s, "e2", "Kanishk", 45)
	post(t, s, "e3", "Anmol", 10)

	if b := mustBalance(t, s, "Kanishk"); b != 145 {
		t.Errorf("balance = %d, want 145", b)
	}
	if b := mustBalance(t, s, "Anmol"); b != 10 {
		t.Errorf("balance = %d, want 10", b)
	}
}

func TestBalance_FloorsAtZero(t *testing.T) {
	// The internal running total may go negative; the reported balance
	// never does.
	s, _ := newTestService(t, at(sunday, 12, 0))
	post(t, s, "e1", "Kanishk", 30)
	post(t, s, "e2", "Kanishk", -80)

	if b := mustBalance(t, s, "Kanishk"); b != 0 {
		t.Errorf("balance = %d, want 0 (floored)", b)
	}
}

func TestBalance_EmptyLedger(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 12, 0))
	if b := mustBalance(t, s, "Kanishk"); b != 0 {
		t.Errorf("balance = %d, want 0", b)
	}
}

func TestBalance_UnknownUser(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 12, 0))
	if _, err := s.Balance("Stranger"); !errors.Is(err, domain.ErrUnknownUser) {
		t.Fatalf("err = %v, want ErrUnknownUser", err)
	}
}

// ─── Redemption Tests ───────────────────────────────────────────────────────

func TestRedeem(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 12, 0))
	post(t, s, "e1", "Kanishk", 100)

	entry, err := s.Redeem("Kanishk", 60, "movie night")
	if err != nil {
		t.Fatalf("Redeem() error: %v", err)
	}
	if entry.Points != -60 {
		t.Errorf("points = %d, want -60", entry.Points)
	}
	if entry.Category != domain.CategoryRedemption {
		t.Errorf("category = %q, want Redemption", entry.Category)
	}
	// Money flows out of the redeemer's own balance, not to the counterpart.
	if entry.User != "Kanishk" || entry.FromUser != "Kanishk" {
		t.Errorf("user/from = %q/%q, want Kanishk/Kanishk", entry.User, entry.FromUser)
	}

	if b := mustBalance(t, s, "Kanishk"); b != 40 {
		t.Errorf("balance = %d, want 40", b)
	}
	if b := mustBalance(t, s, "Anmol"); b != 0 {
		t.Errorf("counterpart balance = %d, want 0", b)
	}
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 12, 0))
	post(t, s, "e1", "Kanishk", 40)

	_, err := s.Redeem("Kanishk", 50, "too much")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// No entry was created.
	entries, err := s.db.EntriesForUser("Kanishk")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want the seed entry only", len(entries))
	}
}

func TestRedeem_ExactBalance(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 12, 0))
	post(t, s, "e1", "Kanishk", 50)

	if _, err := s.Redeem("Kanishk", 50, "all in"); err != nil {
		t.Fatalf("Redeem() of exact balance should succeed: %v", err)
	}
	if b := mustBalance(t, s, "Kanishk"); b != 0 {
		t.Errorf("balance = %d, want 0", b)
	}
}

func TestRedeem_InvalidAmount(t *testing.T) {
	s, _ := newTestService(t, at(sunday, 12, 0))
	post(t, s, "e1", "Kanishk", 100)

	for _, amount := range []int64{0, -10} {
		if _, err := s.Redeem("Kanishk", amount, "bad"); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("Redeem(%d) err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

// ─── Stats Tests ────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	s, clk := newTestService(t, at(sunday, 12, 0))
	post(t, s, "e1", "Kanishk", 100)
	clk.t = clk.t.Add(time.Minute)
	post(t, s, "e2", "Kanishk", 45)
	clk.t = clk.t.Add(time.Minute)
	post(t, s, "e3", "Anmol", 10)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got stats for %d users, want 2", len(stats))
	}

	k := stats["Kanishk"]
	if k.Balance != 145 {
		t.Errorf("Kanishk balance = %d, want 145", k.Balance)
	}
	if len(k.Logs) != 2 {
		t.Fatalf("Kanishk has %d logs, want 2", len(k.Logs))
	}
	if k.Logs[0].ID != "e2" {
		t.Errorf("first log = %q, want newest first", k.Logs[0].ID)
	}

	a := stats["Anmol"]
	if a.Balance != 10 || len(a.Logs) != 1 {
		t.Errorf("Anmol stats = %+v, want balance 10 and one log", a)
	}
}

func TestStats_SweepsFirst(t *testing.T) {
	// A stats read after the cutoff reconciles the day before reporting.
	s, _ := newTestService(t, at(monday, 19, 0))

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats["Kanishk"].Balance != 100 || stats["Anmol"].Balance != 100 {
		t.Errorf("stats = %+v, want both balances 100 from the sweep", stats)
	}
}
