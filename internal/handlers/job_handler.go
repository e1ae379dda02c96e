// -----------------------------------------------------------------------
// Job handler - execution, lifecycle, and cleanup endpoints
// -----------------------------------------------------------------------

package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

type JobHandler struct {
	jobs    interfaces.JobService
	cleanup *common.CleanupConfig
	logger  arbor.ILogger
}

func NewJobHandler(jobs interfaces.JobService, cleanup *common.CleanupConfig, logger arbor.ILogger) *JobHandler {
	return &JobHandler{jobs: jobs, cleanup: cleanup, logger: logger}
}

// ExecuteRequests handles POST /execute-requests: creates a pending
// job over a stored run.
func (h *JobHandler) ExecuteRequests(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ExecuteRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return
	}

	config := models.DefaultHTTPConfig()
	if req.HTTPConfig != nil {
		config = *req.HTTPConfig
	}

	job, err := h.jobs.CreateJob(r.Context(), req.RequestID, req.JobName, config)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, models.ExecuteResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: fmt.Sprintf("job created for run %d with %d requests", req.RequestID, job.Progress.TotalRequests),
	})
}

// ExecuteSingle handles POST /execute-single-request: synchronous
// execution of one generated request, bypassing the job table.
func (h *JobHandler) ExecuteSingle(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ExecuteSingleRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return
	}

	config := models.DefaultHTTPConfig()
	if req.HTTPConfig != nil {
		config = *req.HTTPConfig
	}

	resp, err := h.jobs.ExecuteSingle(r.Context(), req.RequestID, req.Position, config)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// List handles GET /jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	views := make([]models.JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, job.View())
	}
	_ = WriteJSON(w, http.StatusOK, models.JobListResponse{Jobs: views, Total: len(views)})
}

// Get handles GET /jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, job.View())
}

// Stop handles POST /jobs/{id}/stop.
func (h *JobHandler) Stop(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.jobs.StopJob(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"job_id":  id,
		"message": "job cancelled",
	})
}

// Resume handles POST /jobs/{id}/resume.
func (h *JobHandler) Resume(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	job, err := h.jobs.ResumeJob(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, job.View())
}

// Delete handles DELETE /jobs/{id}/delete.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if err := h.jobs.DeleteJob(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"job_id":  id,
		"message": "job deleted",
	})
}

// Cleanup handles POST /jobs/cleanup. The age threshold comes from the
// max_age_hours query parameter, falling back to the configured sweep
// default.
func (h *JobHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	maxAge := h.cleanup.MaxAgeHours
	if v := r.URL.Query().Get("max_age_hours"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			WriteError(w, models.NewInvalidInput("invalid max_age_hours: %s", v))
			return
		}
		maxAge = parsed
	}

	deleted, err := h.jobs.CleanupJobs(r.Context(), maxAge)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, models.CleanupResponse{
		Message:      fmt.Sprintf("deleted %d jobs older than %v hours", deleted, maxAge),
		DeletedCount: deleted,
		MaxAgeHours:  maxAge,
	})
}

// Statistics handles GET /jobs/statistics.
func (h *JobHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.jobs.Statistics(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, stats)
}
