// Package httpapi serves the LINE webhook callback and the dashboard
// JSON API. Dashboard routes take a PIN on every request, so no session
// state is kept.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/store"
)

type Server struct {
	repo goal.Repository
	db   *store.Store
	pin  string
	loc  *time.Location
}

func NewServer(repo goal.Repository, database *store.Store, pin string, loc *time.Location) *Server {
	return &Server{repo: repo, db: database, pin: pin, loc: loc}
}

// Router builds the HTTP surface. The LINE callback is mounted as given
// because the SDK does its own signature check on the raw body.
func (s *Server) Router(callback http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if callback != nil {
		r.Post("/callback", callback)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requirePIN)
		r.Get("/stats", s.handleStats)
		r.Get("/goals", s.handleGoals)
		r.Get("/kb", s.handleKB)
		r.Get("/history", s.handleHistory)
	})

	return r
}

func (s *Server) requirePIN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pin := r.Header.Get("X-Dashboard-Pin")
		if pin == "" {
			pin = r.URL.Query().Get("pin")
		}
		if pin != s.pin {
			writeError(w, http.StatusUnauthorized, "PIN ไม่ถูกต้องค่ะ")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
