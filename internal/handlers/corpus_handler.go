// -----------------------------------------------------------------------
// Corpus handler - template expansion and run history endpoints
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

type CorpusHandler struct {
	expansion interfaces.ExpansionService
	logger    arbor.ILogger
}

func NewCorpusHandler(expansion interfaces.ExpansionService, logger arbor.ILogger) *CorpusHandler {
	return &CorpusHandler{expansion: expansion, logger: logger}
}

// ReplacePlaceholders handles POST /replace-placeholders.
func (h *CorpusHandler) ReplacePlaceholders(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.PlaceholderRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	resp, err := h.expansion.ExpandPlaceholders(r.Context(), &req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// Mutations handles POST /mutations.
func (h *CorpusHandler) Mutations(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.MutationRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	resp, err := h.expansion.ExpandMutations(r.Context(), &req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// Intuitive handles POST /intuitive.
func (h *CorpusHandler) Intuitive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.IntuitiveRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	resp, err := h.expansion.ExpandIntuitive(r.Context(), &req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// History handles GET /history plus GET/DELETE /history/{id}.
func (h *CorpusHandler) History(w http.ResponseWriter, r *http.Request) {
	suffix := strings.Trim(strings.TrimPrefix(r.URL.Path, "/history"), "/")
	if suffix == "" {
		h.listHistory(w, r)
		return
	}

	id, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil {
		WriteError(w, models.NewInvalidInput("invalid run id: %s", suffix))
		return
	}

	switch r.Method {
	case http.MethodGet:
		resp, err := h.expansion.GetRun(r.Context(), id)
		if err != nil {
			WriteError(w, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, resp)
	case http.MethodDelete:
		if err := h.expansion.DeleteRun(r.Context(), id); err != nil {
			WriteError(w, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, map[string]interface{}{
			"message": "run deleted",
			"id":      id,
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CorpusHandler) listHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit, offset := GetPaginationParams(r)
	history, err := h.expansion.ListHistory(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"total":   len(history),
	})
}

// Statistics handles GET /statistics.
func (h *CorpusHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.expansion.Statistics(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, stats)
}
