package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/interfaces"
)

// ReportHandler serves rendered job reports.
type ReportHandler struct {
	reports interfaces.ReportService
	logger  arbor.ILogger
}

func NewReportHandler(reports interfaces.ReportService, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Render handles GET /jobs/{id}/report. The format query parameter
// selects markdown, html, or pdf; markdown is the default.
func (h *ReportHandler) Render(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = interfaces.ReportFormatMarkdown
	}

	doc, contentType, err := h.reports.RenderJobReport(r.Context(), jobID, format)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
