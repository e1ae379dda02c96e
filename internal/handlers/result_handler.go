package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

// ResultHandler serves stored per-request outcomes. Listings carry
// summaries only; the per-ordinal lookup returns the full row.
type ResultHandler struct {
	storage interfaces.StorageManager
	jobs    interfaces.JobService
	fuzzer  *common.FuzzerConfig
	logger  arbor.ILogger
}

func NewResultHandler(storage interfaces.StorageManager, jobs interfaces.JobService, fuzzer *common.FuzzerConfig, logger arbor.ILogger) *ResultHandler {
	return &ResultHandler{storage: storage, jobs: jobs, fuzzer: fuzzer, logger: logger}
}

// List handles GET /jobs/{id}/results.
func (h *ResultHandler) List(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	if _, err := h.jobs.GetJob(ctx, jobID); err != nil {
		WriteError(w, err)
		return
	}

	limit, offset := GetPaginationParams(r)
	if limit <= 0 {
		limit = h.fuzzer.HistoryPageLimit
		if limit <= 0 {
			limit = 50
		}
	}

	total, err := h.storage.Results().CountResults(ctx, jobID)
	if err != nil {
		WriteError(w, err)
		return
	}

	results, err := h.storage.Results().GetResults(ctx, jobID, limit, offset)
	if err != nil {
		WriteError(w, err)
		return
	}

	summaries := make([]models.JobResultSummary, 0, len(results))
	for _, result := range results {
		summaries = append(summaries, result.Summary())
	}

	_ = WriteJSON(w, http.StatusOK, models.ResultPage{
		JobID:   jobID,
		Results: summaries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(summaries) < total,
	})
}

// Get handles GET /jobs/{id}/results/{n}.
func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request, jobID string, ordinal int) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx := r.Context()
	if _, err := h.jobs.GetJob(ctx, jobID); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.storage.Results().GetResultByOrdinal(ctx, jobID, ordinal)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, result)
}
