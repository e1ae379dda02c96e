// -----------------------------------------------------------------------
// API request and response shapes
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PlaceholderRequest is the body of POST /replace-placeholders.
type PlaceholderRequest struct {
	Template     string       `json:"template" validate:"required"`
	Placeholders []string     `json:"placeholders"`
	Strategy     string       `json:"strategy" validate:"required"`
	PayloadSets  []PayloadSet `json:"payload_sets"`
}

// Validate checks the request against its schema tags.
func (r *PlaceholderRequest) Validate() error {
	return validate.Struct(r)
}

// MutationRequest is the body of POST /mutations.
type MutationRequest struct {
	Template  string     `json:"template" validate:"required"`
	Mutations []Mutation `json:"mutations" validate:"dive"`
}

// Validate checks the request against its schema tags.
func (r *MutationRequest) Validate() error {
	return validate.Struct(r)
}

// IntuitiveRequest is the body of POST /intuitive. Placeholder names
// are derived from each set's token, so no placeholders list is taken.
type IntuitiveRequest struct {
	Template    string     `json:"template" validate:"required"`
	Strategy    string     `json:"strategy" validate:"required"`
	PayloadSets []Mutation `json:"payload_sets" validate:"dive"`
}

// Validate checks the request against its schema tags.
func (r *IntuitiveRequest) Validate() error {
	return validate.Struct(r)
}

// PlaceholderResponse is returned by the three expansion endpoints and
// by the history detail lookup.
type PlaceholderResponse struct {
	Strategy      string             `json:"strategy"`
	TotalRequests int                `json:"total_requests"`
	Requests      []GeneratedRequest `json:"requests"`
	RequestID     uint64             `json:"request_id"`
}

// HistoryEntry is one row of the corpus run listing. The generated
// requests are omitted; the detail endpoint returns them.
type HistoryEntry struct {
	ID            uint64    `json:"id"`
	Template      string    `json:"template"`
	Placeholders  []string  `json:"placeholders"`
	Strategy      Strategy  `json:"strategy"`
	TotalRequests int       `json:"total_requests"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryView projects a run down to its listing row.
func (r *CorpusRun) HistoryView() HistoryEntry {
	return HistoryEntry{
		ID:            r.ID,
		Template:      r.Template,
		Placeholders:  r.Placeholders,
		Strategy:      r.Strategy,
		TotalRequests: r.TotalRequests,
		CreatedAt:     r.CreatedAt,
	}
}

// ExecuteRequest is the body of POST /execute-requests.
type ExecuteRequest struct {
	RequestID  uint64      `json:"request_id" validate:"required"`
	JobName    string      `json:"job_name,omitempty"`
	HTTPConfig *HTTPConfig `json:"http_config"`
}

// Validate checks the request against its schema tags.
func (r *ExecuteRequest) Validate() error {
	return validate.Struct(r)
}

// ExecuteSingleRequest is the body of POST /execute-single-request.
// Position is the zero-based index into the generated sequence.
type ExecuteSingleRequest struct {
	RequestID  uint64      `json:"request_id" validate:"required"`
	Position   int         `json:"position" validate:"gte=0"`
	HTTPConfig *HTTPConfig `json:"http_config"`
}

// Validate checks the request against its schema tags.
func (r *ExecuteSingleRequest) Validate() error {
	return validate.Struct(r)
}

// ExecuteResponse acknowledges job creation.
type ExecuteResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// ExecuteSingleResponse carries the synchronous single-request outcome.
type ExecuteSingleResponse struct {
	RequestID uint64        `json:"request_id"`
	Position  int           `json:"position"`
	Request   string        `json:"request"`
	Response  *HTTPResponse `json:"http_response"`
}

// JobView is the API projection of a job.
type JobView struct {
	JobID        string      `json:"job_id"`
	Name         string      `json:"name,omitempty"`
	Status       JobStatus   `json:"status"`
	RequestID    uint64      `json:"request_id"`
	Progress     JobProgress `json:"progress"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// View projects the job for API responses.
func (j *Job) View() JobView {
	return JobView{
		JobID:        j.ID,
		Name:         j.Name,
		Status:       j.Status,
		RequestID:    j.RunID,
		Progress:     j.Progress,
		ErrorMessage: j.Error,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

// JobListResponse is the paged job listing.
type JobListResponse struct {
	Jobs  []JobView `json:"jobs"`
	Total int       `json:"total"`
}

// CleanupResponse reports one cleanup sweep.
type CleanupResponse struct {
	Message      string  `json:"message"`
	DeletedCount int     `json:"deleted_count"`
	MaxAgeHours  float64 `json:"max_age_hours"`
}
