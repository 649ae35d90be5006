package tracker

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studypact/studypact/internal/domain"
	"github.com/studypact/studypact/internal/infra/observability"
)

// ─── Week / Task CRUD ───────────────────────────────────────────────────────

// CreateWeek creates a week container.
func (s *Service) CreateWeek(title, startDate string) (*domain.Week, error) {
	if title == "" {
		return nil, fmt.Errorf("week title required")
	}
	if _, err := time.Parse(time.DateOnly, startDate); err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	week := domain.Week{
		ID:        uuid.NewString(),
		Title:     title,
		StartDate: startDate,
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.InsertWeek(week); err != nil {
		return nil, fmt.Errorf("create week: %w", err)
	}
	return &week, nil
}

// CreateTask creates a task under a week. The week must exist.
func (s *Service) CreateTask(weekID, title, dueDate, assignedUser string) (*domain.Task, error) {
	if err := s.checkUser(assignedUser); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("task title required")
	}
	if _, err := time.Parse(time.DateOnly, dueDate); err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}
	task := domain.Task{
		ID:           uuid.NewString(),
		WeekID:       weekID,
		Title:        title,
		DueDate:      dueDate,
		AssignedUser: assignedUser,
		Status:       domain.TaskPending,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.db.InsertTask(task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListWeeks sweeps, then returns all weeks with tasks, newest first.
func (s *Service) ListWeeks() ([]domain.Week, error) {
	if err := s.Sweep(); err != nil {
		return nil, err
	}
	return s.db.ListWeeks()
}

// DeleteTask removes a task and its linked ledger entries.
func (s *Service) DeleteTask(id string) error {
	return s.db.DeleteTask(id)
}

// DeleteWeek removes a week, its tasks, and their linked ledger entries.
func (s *Service) DeleteWeek(id string) error {
	return s.db.DeleteWeek(id)
}

// ─── Task Completion Penalizer ──────────────────────────────────────────────

// CompleteTask resolves a pending task against its due date. Completion
// at or before the due date's last instant is on time and logs a
// zero-point entry for the assignee. A late completion rewards the
// counterpart LatePointsPerDay points per started day of lateness,
// linked to the task so the points vanish if the task is deleted.
// The transition happens exactly once per task.
func (s *Service) CompleteTask(id string) (*domain.Task, error) {
	task, err := s.db.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskPending {
		return nil, domain.ErrAlreadyResolved
	}

	now := s.clock.Now()
	dueEnd, err := task.DueEndOfDay(now.Location())
	if err != nil {
		return nil, err
	}

	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		FromUser:  domain.SystemUser,
		Category:  domain.CategoryPenalty,
		TaskID:    task.ID,
		CreatedAt: now,
	}

	var status domain.TaskStatus
	var reward int64
	if now.After(dueEnd) {
		daysLate := int64(math.Ceil(now.Sub(dueEnd).Hours() / 24))
		reward = daysLate * s.cfg.LatePointsPerDay
		status = domain.TaskCompletedLate
		entry.User = s.cfg.Users.Other(task.AssignedUser)
		entry.Points = reward
		entry.Reason = fmt.Sprintf("%s finished late", task.AssignedUser)
	} else {
		status = domain.TaskCompletedOnTime
		entry.User = task.AssignedUser
		entry.Reason = fmt.Sprintf("%s finished on time", task.AssignedUser)
	}

	if err := s.db.FinishTask(task.ID, status, &entry); err != nil {
		return nil, err
	}

	if reward > 0 {
		observability.PenaltyPointsTotal.WithLabelValues("late_task").Add(float64(reward))
	}
	s.log.Info("task completed",
		zap.String("task_id", task.ID),
		zap.String("user", task.AssignedUser),
		zap.String("status", string(status)),
		zap.Int64("reward", reward))

	task.Status = status
	return task, nil
}
