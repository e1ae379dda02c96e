package models

import "time"

// HTTPResponse captures the outcome of sending one generated request.
// A transport failure is recorded with status code 0 and the error
// message; the response fields stay empty. ActualRequest holds the
// wire-level reconstruction of what was sent, for audit.
type HTTPResponse struct {
	StatusCode    int               `json:"status_code"`
	Headers       map[string]string `json:"headers"`
	Body          string            `json:"body"`
	URL           string            `json:"url"`
	ElapsedTime   float64           `json:"elapsed_time"`
	Error         string            `json:"error,omitempty"`
	ActualRequest string            `json:"actual_request,omitempty"`
}

// OK reports whether the exchange completed at the transport level.
// HTTP error statuses (4xx, 5xx) still count as completed exchanges.
func (r *HTTPResponse) OK() bool {
	return r != nil && r.Error == "" && r.StatusCode > 0
}

// JobResult is one stored per-request outcome of a job execution,
// keyed by an auto-assigned sequence and indexed by job. Results are
// written as they complete and truncated when the job is resumed.
type JobResult struct {
	ID         uint64        `json:"-" badgerhold:"key"`
	JobID      string        `json:"job_id" badgerhold:"index"`
	Ordinal    int           `json:"request_number"`
	Content    string        `json:"request"`
	Provenance Provenance    `json:"provenance"`
	Response   *HTTPResponse `json:"http_response,omitempty"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// NewJobResult builds a result row from an exchange outcome. Success
// reflects transport-level completion, not the HTTP status class.
func NewJobResult(jobID string, ordinal int, content string, provenance Provenance, response *HTTPResponse) *JobResult {
	result := &JobResult{
		JobID:      jobID,
		Ordinal:    ordinal,
		Content:    content,
		Provenance: provenance,
		Response:   response,
		Success:    response.OK(),
		CreatedAt:  time.Now(),
	}
	if response != nil && response.Error != "" {
		result.Error = response.Error
	}
	return result
}

// JobResultSummary is the paged-listing view of a result. Bodies can
// be large, so the listing carries only the outcome fields; the full
// row is fetched per ordinal.
type JobResultSummary struct {
	Ordinal     int     `json:"request_number"`
	StatusCode  int     `json:"status_code"`
	URL         string  `json:"url"`
	Payload     string  `json:"payload,omitempty"`
	ElapsedTime float64 `json:"elapsed_time"`
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
}

// Summary projects the result down to its listing view.
func (r *JobResult) Summary() JobResultSummary {
	s := JobResultSummary{
		Ordinal: r.Ordinal,
		Payload: r.Provenance.Payload,
		Success: r.Success,
		Error:   r.Error,
	}
	if r.Response != nil {
		s.StatusCode = r.Response.StatusCode
		s.URL = r.Response.URL
		s.ElapsedTime = r.Response.ElapsedTime
	}
	return s
}

// ResultPage is an oldest-first window over a job's stored results.
type ResultPage struct {
	JobID   string             `json:"job_id"`
	Results []JobResultSummary `json:"results"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	HasMore bool               `json:"has_more"`
}
