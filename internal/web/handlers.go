package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tablediff/tablediff/internal/core"
	"github.com/tablediff/tablediff/internal/tabular"
)

// handleHealth reports liveness and whether run history is available.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"history": s.service.HistoryEnabled(),
	})
}

// handleParse parses one dataset and returns the table as JSON.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req core.Source
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	table, err := s.service.ParseSource(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, table)
}

// handleFilter runs a set-membership filter of left against right.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req core.FilterRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.RunFilter(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleCompare runs a key-based comparison of the two datasets.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req core.CompareRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.RunCompare(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// exportRequest carries a table back for delimited-text serialization,
// typically the rows of an earlier filter result. Columns defaults to
// Headers when omitted.
type exportRequest struct {
	Headers  []string      `json:"headers"`
	Columns  []string      `json:"columns"`
	Rows     []tabular.Row `json:"data"`
	FileName string        `json:"fileName"`
}

// handleExport serializes rows to CSV and returns them as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if len(req.Headers) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: export headers are required", tabular.ErrInvalidArgument))
		return
	}
	columns := req.Columns
	if len(columns) == 0 {
		columns = req.Headers
	}

	text, err := tabular.WriteString(req.Headers, columns, req.Rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		fileName = "export.csv"
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// runListResponse wraps the history listing.
type runListResponse struct {
	Runs []core.RunRecord `json:"runs"`
}

// handleListRuns returns recent run-history entries, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 0)

	runs, err := s.service.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, runListResponse{Runs: runs})
}

// handleGetRun returns a single run-history entry by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
