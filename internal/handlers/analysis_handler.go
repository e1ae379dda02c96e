// -----------------------------------------------------------------------
// Analysis handler - detector passes over stored job results
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

// AnalysisHandler exposes the three detectors. Each endpoint accepts
// either a POST body or GET query parameters; omitted fields keep
// their defaults.
type AnalysisHandler struct {
	analysis interfaces.AnalysisService
	logger   arbor.ILogger
}

func NewAnalysisHandler(analysis interfaces.AnalysisService, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis, logger: logger}
}

// ErrorPatterns handles /jobs/{id}/analyze/error-patterns.
func (h *AnalysisHandler) ErrorPatterns(w http.ResponseWriter, r *http.Request, jobID string) {
	var cfg models.ErrorPatternConfig
	switch r.Method {
	case http.MethodPost:
		if err := DecodeJSON(r, &cfg); err != nil {
			WriteError(w, err)
			return
		}
	case http.MethodGet:
		query := r.URL.Query()
		if v := query.Get("patterns"); v != "" {
			for _, pattern := range strings.Split(v, ",") {
				if pattern = strings.TrimSpace(pattern); pattern != "" {
					cfg.Patterns = append(cfg.Patterns, pattern)
				}
			}
		}
		cfg.CaseSensitive = queryBool(query.Get("case_sensitive"), false)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.analysis.AnalyzeErrorPatterns(r.Context(), jobID, cfg)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, report)
}

// Reflection handles /jobs/{id}/analyze/payload-reflection.
func (h *AnalysisHandler) Reflection(w http.ResponseWriter, r *http.Request, jobID string) {
	cfg := models.DefaultReflectionConfig()
	switch r.Method {
	case http.MethodPost:
		if err := DecodeJSON(r, &cfg); err != nil {
			WriteError(w, err)
			return
		}
	case http.MethodGet:
		query := r.URL.Query()
		cfg.CheckHTMLEncoded = queryBool(query.Get("check_html_encoded"), cfg.CheckHTMLEncoded)
		cfg.CheckURLEncoded = queryBool(query.Get("check_url_encoded"), cfg.CheckURLEncoded)
		cfg.CheckJSEncoded = queryBool(query.Get("check_js_encoded"), cfg.CheckJSEncoded)
		if v := query.Get("min_payload_length"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				WriteError(w, models.NewInvalidInput("invalid min_payload_length: %s", v))
				return
			}
			cfg.MinPayloadLength = parsed
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.analysis.AnalyzeReflection(r.Context(), jobID, cfg)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, report)
}

// TimeDelays handles /jobs/{id}/analyze/time-delay.
func (h *AnalysisHandler) TimeDelays(w http.ResponseWriter, r *http.Request, jobID string) {
	cfg := models.DefaultTimeDelayConfig()
	switch r.Method {
	case http.MethodPost:
		if err := DecodeJSON(r, &cfg); err != nil {
			WriteError(w, err)
			return
		}
	case http.MethodGet:
		query := r.URL.Query()
		if v := query.Get("time_threshold"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				WriteError(w, models.NewInvalidInput("invalid time_threshold: %s", v))
				return
			}
			cfg.TimeThreshold = parsed
		}
		if v := query.Get("baseline_method"); v != "" {
			cfg.BaselineMethod = v
		}
		cfg.PartitionByPayload = queryBool(query.Get("partition_by_payload"), cfg.PartitionByPayload)
		if v := query.Get("top_slowest"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				WriteError(w, models.NewInvalidInput("invalid top_slowest: %s", v))
				return
			}
			cfg.TopSlowest = parsed
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.analysis.AnalyzeTimeDelays(r.Context(), jobID, cfg)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, report)
}

func queryBool(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
