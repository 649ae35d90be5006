// Package api provides the HTTP server for the tracker. The web client
// lives on a separate origin, so CORS stays open.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studypact/studypact/internal/app/tracker"
)

// Server is the tracker HTTP API server.
type Server struct {
	svc               *tracker.Service
	pointsPerCurrency int64
	metricsEnabled    bool
	log               *zap.Logger
}

// NewServer creates a new API server. pointsPerCurrency is the
// display-time conversion rate; it never touches ledger semantics.
func NewServer(svc *tracker.Service, pointsPerCurrency int64, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, pointsPerCurrency: pointsPerCurrency, log: log}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/weeks", s.handleListWeeks)
		r.Post("/weeks", s.handleCreateWeek)
		r.Delete("/weeks/{id}", s.handleDeleteWeek)

		r.Post("/tasks", s.handleCreateTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
		r.Patch("/tasks/{id}/complete", s.handleCompleteTask)

		r.Get("/attendance/today", s.handleAttendanceToday)
		r.Post("/attendance/check-in", s.handleCheckIn)
		r.Post("/attendance/bunk", s.handleBunk)

		r.Post("/redeem", s.handleRedeem)
		r.Get("/stats", s.handleStats)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the web client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
