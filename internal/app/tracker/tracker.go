// Package tracker implements the points-ledger and attendance-penalty
// engine: the absence sweeper, check-in/bunk handlers, the late-task
// penalizer, and the redemption processor.
//
// Every event flows the same way:
//  1. The sweeper reconciles any elapsed, unprocessed session window
//  2. The specific handler checks its preconditions
//  3. The status write and its ledger post land as one atomic unit
package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studypact/studypact/internal/domain"
	"github.com/studypact/studypact/internal/infra/observability"
	"github.com/studypact/studypact/internal/infra/sqlite"
)

// Config holds the policy constants of the engine. None of these are
// magic literals in the rules below; they all come from configuration.
type Config struct {
	Users            domain.Pair
	Schedule         domain.Schedule
	GraceMinutes     int   // minutes after session start before an absence is judged
	BunkPenalty      int64 // points credited to the other user per absence
	LatePointsPerDay int64 // points per day of late task completion
}

// DefaultConfig returns the reference policy.
func DefaultConfig() Config {
	return Config{
		GraceMinutes:     100,
		BunkPenalty:      100,
		LatePointsPerDay: 10,
	}
}

// Service is the tracker engine. It owns no state beyond its injected
// collaborators; all durable state lives in the store.
type Service struct {
	db    *sqlite.DB
	cfg   Config
	clock domain.Clock
	log   *zap.Logger
}

// New creates the engine.
func New(db *sqlite.DB, cfg Config, clock domain.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, cfg: cfg, clock: clock, log: log}
}

func (s *Service) checkUser(user string) error {
	if !s.cfg.Users.Contains(user) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownUser, user)
	}
	return nil
}

// ─── Automatic Absence Sweeper ──────────────────────────────────────────────

// Sweep reconciles today's session window. Once the grace window after
// the scheduled start has elapsed, any user who has not checked in is
// marked Bunked and the other user is credited the absence penalty —
// exactly once per user per day, enforced by the idempotency key on the
// posted entry. Safe to run on every request.
func (s *Service) Sweep() error {
	observability.SweepsTotal.Inc()

	now := s.clock.Now()
	start, ok := s.cfg.Schedule.SessionStart(now)
	if !ok {
		return nil // no session today
	}
	cutoff := start.Add(time.Duration(s.cfg.GraceMinutes) * time.Minute)
	if !now.After(cutoff) {
		return nil // too early to judge absence
	}

	date := domain.LocalDate(now)
	for _, user := range s.cfg.Users.Users() {
		rec, err := s.db.AttendanceFor(user, date)
		if err != nil {
			return fmt.Errorf("load attendance: %w", err)
		}
		if rec != nil && rec.Resolved() {
			continue
		}

		other := s.cfg.Users.Other(user)
		entry := domain.LedgerEntry{
			ID:             uuid.NewString(),
			User:           other,
			FromUser:       domain.SystemUser,
			Reason:         fmt.Sprintf("%s bunked (auto)", user),
			Points:         s.cfg.BunkPenalty,
			Category:       domain.CategoryPenalty,
			IdempotencyKey: domain.AutoBunkKey(user, date),
			CreatedAt:      now,
		}
		bunked := domain.AttendanceRecord{
			ID:     uuid.NewString(),
			User:   user,
			Date:   date,
			Status: domain.StatusBunked,
		}

		err = s.db.ResolveAttendance(bunked, &entry)
		if errors.Is(err, domain.ErrAlreadyResolved) {
			continue // raced with a check-in or another sweep
		}
		if err != nil {
			return fmt.Errorf("sweep %s: %w", user, err)
		}

		observability.AutoBunksTotal.WithLabelValues(user).Inc()
		observability.PenaltyPointsTotal.WithLabelValues("auto_bunk").Add(float64(s.cfg.BunkPenalty))
		s.log.Info("auto bunk recorded",
			zap.String("user", user),
			zap.String("date", date),
			zap.Int64("points", s.cfg.BunkPenalty))
	}
	return nil
}

// ─── Check-In Handler ───────────────────────────────────────────────────────

// CheckIn records a user's arrival for today. A day already resolved to
// Present or Bunked rejects with ErrAlreadyResolved. Arriving after the
// scheduled start costs one point per full minute of lateness, credited
// to the other user; an off-schedule day or an on-time arrival costs
// nothing. Returns the stored record.
func (s *Service) CheckIn(user string) (*domain.AttendanceRecord, error) {
	if err := s.checkUser(user); err != nil {
		return nil, err
	}
	if err := s.Sweep(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := domain.LocalDate(now)

	existing, err := s.db.AttendanceFor(user, date)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	if existing != nil && existing.Resolved() {
		return nil, domain.ErrAlreadyResolved
	}

	rec := domain.AttendanceRecord{
		ID:          uuid.NewString(),
		User:        user,
		Date:        date,
		ArrivalTime: &now,
		Status:      domain.StatusPresent,
	}

	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		User:      user,
		FromUser:  domain.SystemUser,
		Category:  domain.CategoryPenalty,
		CreatedAt: now,
	}

	start, scheduled := s.cfg.Schedule.SessionStart(now)
	switch {
	case !scheduled:
		entry.Reason = fmt.Sprintf("%s attended an extra session (off-schedule)", user)
	case now.After(start):
		minutesLate := int(now.Sub(start) / time.Minute)
		rec.PenaltyMinutes = minutesLate
		entry.User = s.cfg.Users.Other(user)
		entry.Reason = fmt.Sprintf("%s was %d min late", user, minutesLate)
		entry.Points = int64(minutesLate)
	default:
		entry.Reason = fmt.Sprintf("%s arrived on time", user)
	}

	if err := s.db.ResolveAttendance(rec, &entry); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return nil, domain.ErrAlreadyResolved
		}
		return nil, fmt.Errorf("record check-in: %w", err)
	}

	if rec.PenaltyMinutes > 0 {
		observability.PenaltyPointsTotal.WithLabelValues("late_arrival").Add(float64(rec.PenaltyMinutes))
	}
	s.log.Info("check-in recorded",
		zap.String("user", user),
		zap.String("date", date),
		zap.Int("penalty_minutes", rec.PenaltyMinutes))
	return &rec, nil
}

// ─── Bunk Handler ───────────────────────────────────────────────────────────

// Bunk records a self-reported absence for today. Unlike an automatic
// sweep, the entry's FromUser is the bunking user. The already-resolved
// precondition doubles as the duplicate-submission guard.
func (s *Service) Bunk(user string) (*domain.AttendanceRecord, error) {
	if err := s.checkUser(user); err != nil {
		return nil, err
	}
	if err := s.Sweep(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := domain.LocalDate(now)

	existing, err := s.db.AttendanceFor(user, date)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	if existing != nil && existing.Resolved() {
		return nil, domain.ErrAlreadyResolved
	}

	rec := domain.AttendanceRecord{
		ID:     uuid.NewString(),
		User:   user,
		Date:   date,
		Status: domain.StatusBunked,
	}
	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		User:      s.cfg.Users.Other(user),
		FromUser:  user,
		Reason:    fmt.Sprintf("%s bunked", user),
		Points:    s.cfg.BunkPenalty,
		Category:  domain.CategoryPenalty,
		CreatedAt: now,
	}

	if err := s.db.ResolveAttendance(rec, &entry); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return nil, domain.ErrAlreadyResolved
		}
		return nil, fmt.Errorf("record bunk: %w", err)
	}

	observability.PenaltyPointsTotal.WithLabelValues("bunk").Add(float64(s.cfg.BunkPenalty))
	s.log.Info("bunk recorded", zap.String("user", user), zap.String("date", date))
	return &rec, nil
}

// ─── Attendance Reads ───────────────────────────────────────────────────────

// AttendanceToday sweeps, then returns today's records. Users who have
// neither checked in nor been swept have no record yet.
func (s *Service) AttendanceToday() ([]domain.AttendanceRecord, error) {
	if err := s.Sweep(); err != nil {
		return nil, err
	}
	return s.db.AttendanceOn(domain.LocalDate(s.clock.Now()))
}
