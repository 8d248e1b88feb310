package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openlot/dealsync-go/internal/models"
	"github.com/openlot/dealsync-go/internal/service"
	"github.com/openlot/dealsync-go/internal/store"
)

// defaultOrganization scopes requests that carry no organization of their
// own.
const defaultOrganization = "default"

type scrapeBulkRequest struct {
	URLs           []string `json:"urls"`
	Organization   string   `json:"organization"`
	AssignedUserID string   `json:"assignedUserId"`
}

type jobPatchRequest struct {
	Status        *string    `json:"status"`
	Scraped       *bool      `json:"scraped"`
	AssignedTo    *string    `json:"assignedTo"`
	ScheduledTime *time.Time `json:"scheduledTime"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	snap := s.metrics.Snapshot()

	vehicles, err := s.store.CountVehicles(r.Context(), organizationFrom(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"vehicles":   vehicles,
		"operations": snap,
	})
}

// handleScrapeBulk runs a batch synchronously and always answers 200 with
// the full report; only malformed input gets a 400.
func (s *Server) handleScrapeBulk(w http.ResponseWriter, r *http.Request) {
	var req scrapeBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls must be a non-empty array")
		return
	}
	org := req.Organization
	if org == "" {
		org = defaultOrganization
	}

	report := s.orchestrator.ScrapeBulk(r.Context(), org, req.URLs, req.AssignedUserID)
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Organization: r.URL.Query().Get("organization"),
		AssignedUser: r.URL.Query().Get("assignedTo"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.JobStatus(raw)
		if !status.Valid() {
			s.writeError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		filter.Status = status
	}

	jobs, err := s.scheduler.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "total": len(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.scheduler.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req jobPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	existing, err := s.scheduler.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	patch := service.JobPatch{
		AssignedUser:  req.AssignedTo,
		ScheduledTime: req.ScheduledTime,
	}
	if req.Status != nil {
		status := models.JobStatus(*req.Status)
		if !status.Valid() {
			s.writeError(w, http.StatusBadRequest, "unknown status "+*req.Status)
			return
		}
		patch.Status = &status
	}
	if req.Scraped != nil && *req.Scraped && patch.Status == nil {
		done := models.JobSucceeded
		patch.Status = &done
	}

	job, err := s.scheduler.Update(r.Context(), id, patch, s.isAdmin(r))
	if err != nil {
		if errors.Is(err, service.ErrAdminRequired) {
			s.writeError(w, http.StatusForbidden, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRequeueJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.scheduler.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := s.scheduler.Requeue(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) isAdmin(r *http.Request) bool {
	return s.adminKey != "" && r.Header.Get("X-Admin-Key") == s.adminKey
}

func organizationFrom(r *http.Request) string {
	if org := r.URL.Query().Get("organization"); org != "" {
		return org
	}
	return defaultOrganization
}
