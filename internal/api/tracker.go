package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/studypact/studypact/internal/domain"
)

// ─── Tracker API ────────────────────────────────────────────────────────────
// Domain-rule violations are expected, user-presentable conditions:
// AlreadyResolved → 409, NotFound → 404, InsufficientBalance → 422,
// bad input → 400. Anything else is a 500.

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnknownUser), errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ─── Weeks and Tasks ────────────────────────────────────────────────────────

// handleListWeeks returns all weeks with their tasks, newest first.
// GET /api/weeks
func (s *Server) handleListWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.svc.ListWeeks()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if weeks == nil {
		weeks = []domain.Week{}
	}
	writeJSON(w, http.StatusOK, weeks)
}

// handleCreateWeek creates a week.
// POST /api/weeks
func (s *Server) handleCreateWeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     string `json:"title"`
		StartDate string `json:"start_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	week, err := s.svc.CreateWeek(req.Title, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, week)
}

// handleDeleteWeek deletes a week, its tasks, and their ledger entries.
// DELETE /api/weeks/{id}
func (s *Server) handleDeleteWeek(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteWeek(chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleCreateTask creates a task under a week.
// POST /api/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekID       string `json:"week_id"`
		Title        string `json:"title"`
		DueDate      string `json:"due_date"`
		AssignedUser string `json:"assigned_user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task, err := s.svc.CreateTask(req.WeekID, req.Title, req.DueDate, req.AssignedUser)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// handleDeleteTask deletes a task and its linked ledger entries.
// DELETE /api/tasks/{id}
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTask(chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleCompleteTask resolves a pending task against its due date.
// PATCH /api/tasks/{id}/complete
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svc.CompleteTask(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ─── Attendance ─────────────────────────────────────────────────────────────

// handleAttendanceToday sweeps and returns today's records.
// GET /api/attendance/today
func (s *Server) handleAttendanceToday(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.AttendanceToday()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []domain.AttendanceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleCheckIn records an arrival for today.
// POST /api/attendance/check-in
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	user, ok := decodeUser(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.CheckIn(user)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleBunk records a self-reported absence for today.
// POST /api/attendance/bunk
func (s *Server) handleBunk(w http.ResponseWriter, r *http.Request) {
	user, ok := decodeUser(w, r)
	if !ok {
		return
	}
	rec, err := s.svc.Bunk(user)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func decodeUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		User string `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User == "" {
		writeError(w, http.StatusBadRequest, "user required")
		return "", false
	}
	return req.User, true
}

// ─── Redemption and Stats ───────────────────────────────────────────────────

// handleRedeem converts banked points into a payout request.
// POST /api/redeem
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User   string `json:"user"`
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	entry, err := s.svc.Redeem(req.User, req.Amount, req.Reason)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleStats returns per-user balance, currency value, and logs.
// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Currency conversion is a presentation rule, applied here only.
	type userStats struct {
		Balance       int64                `json:"balance"`
		CurrencyValue int64                `json:"currency_value"`
		Logs          []domain.LedgerEntry `json:"logs"`
	}
	out := make(map[string]userStats, len(stats))
	for user, st := range stats {
		logs := st.Logs
		if logs == nil {
			logs = []domain.LedgerEntry{}
		}
		value := int64(0)
		if s.pointsPerCurrency > 0 {
			value = st.Balance / s.pointsPerCurrency
		}
		out[user] = userStats{Balance: st.Balance, CurrencyValue: value, Logs: logs}
	}
	writeJSON(w, http.StatusOK, out)
}
