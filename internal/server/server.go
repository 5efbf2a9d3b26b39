// Package server exposes a read-only HTTP API over recorded runs: listing,
// outcome dumps, and on-demand run comparisons.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/stats"
	"github.com/minds-lab/minds-cli/internal/store"
)

// Server serves the run inspection API.
type Server struct {
	store store.Store
}

// New creates a server over the store.
func New(st store.Store) *Server {
	return &Server{store: st}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{runID}", s.handleGetRun)
	r.Get("/runs/{runID}/outcomes", s.handleGetOutcomes)
	r.Get("/compare", s.handleCompare)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.RunFilter{
		Status:    model.RunStatus(q.Get("status")),
		Benchmark: q.Get("benchmark"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.serverError(w, "list runs", err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetOutcomes(w http.ResponseWriter, r *http.Request) {
	set, err := s.store.GetOutcomes(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.serverError(w, "get outcomes", err)
		return
	}
	if len(set.Outcomes) == 0 {
		writeError(w, http.StatusNotFound, "no outcomes for run")
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	runA, runB := q.Get("a"), q.Get("b")
	if runA == "" {
		writeError(w, http.StatusBadRequest, "query parameter a is required")
		return
	}

	alpha := 0.05
	if raw := q.Get("alpha"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid alpha")
			return
		}
		alpha = v
	}

	setA, err := s.store.GetOutcomes(r.Context(), runA)
	if err != nil {
		s.serverError(w, "get outcomes", err)
		return
	}
	if len(setA.Outcomes) == 0 {
		writeError(w, http.StatusNotFound, "no outcomes for run "+runA)
		return
	}

	var result *stats.ComparisonResult
	if runB == "" {
		result, err = stats.Summarize(setA, alpha)
	} else {
		var setB model.RunOutcomeSet
		setB, err = s.store.GetOutcomes(r.Context(), runB)
		if err != nil {
			s.serverError(w, "get outcomes", err)
			return
		}
		if len(setB.Outcomes) == 0 {
			writeError(w, http.StatusNotFound, "no outcomes for run "+runB)
			return
		}
		result, err = stats.Compare(setA, setB, alpha)
	}
	if err != nil {
		// Mismatched sample sets or bad alpha come back as client errors.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	zap.L().Error("api request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
