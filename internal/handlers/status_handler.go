package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/tento/internal/common"
)

// StatusHandler serves the unauthenticated liveness endpoints.
type StatusHandler struct {
	startTime time.Time
}

func NewStatusHandler() *StatusHandler {
	return &StatusHandler{startTime: time.Now()}
}

// Health handles GET /health.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"service":        "tento",
		"version":        common.GetVersion(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// Version handles GET /version.
func (h *StatusHandler) Version(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
