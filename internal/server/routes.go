// -----------------------------------------------------------------------
// Route table - expansion, jobs, analysis, reports, live streaming
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/tento/internal/handlers"
	"github.com/ternarybob/tento/internal/models"
)

// setupRoutes configures the route table.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Template expansion and run history
	mux.HandleFunc("/replace-placeholders", s.app.CorpusHandler.ReplacePlaceholders)
	mux.HandleFunc("/mutations", s.app.CorpusHandler.Mutations)
	mux.HandleFunc("/intuitive", s.app.CorpusHandler.Intuitive)
	mux.HandleFunc("/history", s.app.CorpusHandler.History)
	mux.HandleFunc("/history/", s.app.CorpusHandler.History)
	mux.HandleFunc("/statistics", s.app.CorpusHandler.Statistics)

	// Job execution
	mux.HandleFunc("/execute-requests", s.app.JobHandler.ExecuteRequests)
	mux.HandleFunc("/execute-single-request", s.app.JobHandler.ExecuteSingle)
	mux.HandleFunc("/jobs", s.app.JobHandler.List)
	mux.HandleFunc("/jobs/", s.routeJobs)

	// Liveness and streaming
	mux.HandleFunc("/health", s.app.StatusHandler.Health)
	mux.HandleFunc("/version", s.app.StatusHandler.Version)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	return mux
}

// routeJobs dispatches everything under /jobs/ by path suffix. The
// job id segment comes first; fixed words (cleanup, statistics) are
// reserved and never valid ids.
func (s *Server) routeJobs(w http.ResponseWriter, r *http.Request) {
	suffix := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs"), "/")

	switch suffix {
	case "":
		s.app.JobHandler.List(w, r)
		return
	case "cleanup":
		s.app.JobHandler.Cleanup(w, r)
		return
	case "statistics":
		s.app.JobHandler.Statistics(w, r)
		return
	}

	parts := strings.Split(suffix, "/")
	jobID := parts[0]

	if len(parts) == 1 {
		s.app.JobHandler.Get(w, r, jobID)
		return
	}

	switch parts[1] {
	case "stop":
		if len(parts) == 2 {
			s.app.JobHandler.Stop(w, r, jobID)
			return
		}
	case "resume":
		if len(parts) == 2 {
			s.app.JobHandler.Resume(w, r, jobID)
			return
		}
	case "delete":
		if len(parts) == 2 {
			s.app.JobHandler.Delete(w, r, jobID)
			return
		}
	case "report":
		if len(parts) == 2 {
			s.app.ReportHandler.Render(w, r, jobID)
			return
		}
	case "results":
		switch len(parts) {
		case 2:
			s.app.ResultHandler.List(w, r, jobID)
			return
		case 3:
			ordinal, err := strconv.Atoi(parts[2])
			if err != nil || ordinal < 1 {
				handlers.WriteError(w, models.NewInvalidInput("invalid result number: %s", parts[2]))
				return
			}
			s.app.ResultHandler.Get(w, r, jobID, ordinal)
			return
		}
	case "analyze":
		if len(parts) == 3 {
			switch parts[2] {
			case "error-patterns":
				s.app.AnalysisHandler.ErrorPatterns(w, r, jobID)
				return
			case "payload-reflection":
				s.app.AnalysisHandler.Reflection(w, r, jobID)
				return
			case "time-delay":
				s.app.AnalysisHandler.TimeDelays(w, r, jobID)
				return
			}
		}
	}

	http.NotFound(w, r)
}
