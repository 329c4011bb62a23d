// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package httpapi exposes stored grading results and accepts grade requests
// over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/sdk/client"

	"github.com/illinois/autograding/internal/results"
	"github.com/illinois/autograding/internal/temporal"
)

const defaultListLimit = 20

// Server serves the results API. The Temporal client is optional; without it
// the grade endpoint reports that grading is unavailable.
type Server struct {
	store     *results.Store
	temporal  client.Client
	taskQueue string
}

// NewServer builds a Server over the given report store.
func NewServer(store *results.Store, temporalClient client.Client, taskQueue string) *Server {
	if taskQueue == "" {
		taskQueue = temporal.DefaultTaskQueue
	}
	return &Server{
		store:     store,
		temporal:  temporalClient,
		taskQueue: taskQueue,
	}
}

// Router mounts all API routes.
func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()

	router.Route("/api", func(r chi.Router) {
		r.Get("/runs/{id}", s.GetRun)
		r.Get("/assignments/{name}/runs", s.ListRuns)
		r.Get("/assignments/{name}/latest", s.LatestRun)
		r.Post("/grade", s.StartGrade)
	})

	router.Get("/healthz", s.Health)

	return router
}

// GetRun returns one stored report by run ID.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ListRuns returns recent reports for one assignment, newest first.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	reports, err := s.store.ListByAssignment(name, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list runs", "assignment", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assignment": name,
		"runs":       reports,
		"total":      len(reports),
	})
}

// LatestRun returns the most recent report for one assignment.
func (s *Server) LatestRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	report, err := s.store.Latest(name)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no runs for assignment")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load latest run", "assignment", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// StartGrade queues a grading workflow and returns its identifiers.
func (s *Server) StartGrade(w http.ResponseWriter, r *http.Request) {
	var req temporal.GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid grade request body")
		return
	}
	if req.Assignment == "" && req.ManifestPath == "" {
		writeError(w, http.StatusBadRequest, "assignment or manifest_path is required")
		return
	}

	if s.temporal == nil {
		writeError(w, http.StatusServiceUnavailable, "grading is not available")
		return
	}

	run, err := temporal.ExecuteGrade(r.Context(), s.temporal, s.taskQueue, req)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to start grade workflow", "assignment", req.Assignment, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start grading")
		return
	}

	slog.InfoContext(r.Context(), "Grade workflow queued",
		"assignment", req.Assignment,
		"workflow_id", run.GetID(),
	)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"workflow_id": run.GetID(),
		"run_id":      run.GetRunID(),
	})
}

// Health reports service liveness.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
