package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"stacksignal/pkg/analysis"
	"stacksignal/pkg/catalog"
	"stacksignal/pkg/detector"
	"stacksignal/pkg/repo"
	"stacksignal/pkg/state"

	"github.com/go-chi/chi/v5"
)

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"`
}

// ReconcileRequest is the body of POST /api/v1/reconcile. Without a catalog
// the server's configured catalog is used.
type ReconcileRequest struct {
	Detections []detector.RawDetection `json:"detections"`
	Catalog    []catalog.Tool          `json:"catalog,omitempty"`
}

// ReconcileResponse is the body returned by POST /api/v1/reconcile
type ReconcileResponse struct {
	Detections []catalog.ReconciledDetection `json:"detections"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error    string           `json:"error"`
	Analysis *analysis.Result `json:"analysis,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "stacksignal",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"rules":   s.service.Engine().Registry().Len(),
	})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	patterns := []detector.DetectionPattern{}
	for _, p := range s.service.Engine().Registry().Patterns() {
		if category == "" || strings.EqualFold(p.Category, category) {
			patterns = append(patterns, p)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"patterns": patterns,
		"total":    len(patterns),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(w, r, maxAnalyzeBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := s.service.Analyze(r.Context(), req.URL, req.Branch)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.Error().Err(err).Msg("analysis request failed")
		}
		respondJSON(w, status, ErrorResponse{Error: err.Error(), Analysis: result})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := decodeBody(w, r, maxReconcileBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Detections == nil {
		respondError(w, http.StatusBadRequest, "detections are required")
		return
	}
	if err := validateReconcile(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reconciled, err := s.service.Reconcile(r.Context(), req.Detections, req.Catalog)
	if err != nil {
		s.log.Error().Err(err).Msg("reconcile request failed")
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ReconcileResponse{Detections: reconciled})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		respondError(w, http.StatusNotFound, "analysis records are not enabled")
		return
	}

	ref, err := repo.ParseRepositoryReference("https://github.com/" + chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.records.LastResult(*ref)
	if err != nil {
		if errors.Is(err, state.ErrNoRecord) {
			respondError(w, http.StatusNotFound, "no analysis recorded for repository")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// validateReconcile bounds the work of a reconcile request
func validateReconcile(req ReconcileRequest) error {
	if len(req.Detections) > maxReconcileItems || len(req.Catalog) > maxReconcileItems {
		return fmt.Errorf("at most %d detections and %d catalog tools are accepted", maxReconcileItems, maxReconcileItems)
	}
	for _, d := range req.Detections {
		if utf8.RuneCountInString(d.DetectedName) > maxReconcileName {
			return fmt.Errorf("detection name exceeds %d characters", maxReconcileName)
		}
	}
	for _, t := range req.Catalog {
		if utf8.RuneCountInString(t.Name) > maxReconcileName {
			return fmt.Errorf("catalog tool name exceeds %d characters", maxReconcileName)
		}
	}
	return nil
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, repo.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, repo.ErrRepositoryUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
