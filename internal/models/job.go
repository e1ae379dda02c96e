// -----------------------------------------------------------------------
// Job - one execution attempt over a corpus run
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobProgress tracks live counters and timings for one job execution.
type JobProgress struct {
	TotalRequests      int        `json:"total_requests"`
	CompletedRequests  int        `json:"completed_requests"`
	SuccessfulRequests int        `json:"successful_requests"`
	FailedRequests     int        `json:"failed_requests"`
	CurrentRequest     int        `json:"current_request"`
	StartTime          *time.Time `json:"start_time,omitempty"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	EstimatedRemaining float64    `json:"estimated_remaining_time"`
}

// Percentage returns completion as 0-100.
func (p *JobProgress) Percentage() float64 {
	if p.TotalRequests == 0 {
		return 0.0
	}
	return float64(p.CompletedRequests) / float64(p.TotalRequests) * 100
}

// Elapsed returns seconds from start until end time, or until now for a
// job still running. Zero before the job has started.
func (p *JobProgress) Elapsed() float64 {
	if p.StartTime == nil {
		return 0
	}
	end := time.Now()
	if p.EndTime != nil {
		end = *p.EndTime
	}
	return end.Sub(*p.StartTime).Seconds()
}

// RecordResult bumps the counters for one finished request and refreshes
// the remaining-time estimate from the observed completion rate.
func (p *JobProgress) RecordResult(ordinal int, success bool) {
	p.CompletedRequests++
	if success {
		p.SuccessfulRequests++
	} else {
		p.FailedRequests++
	}
	p.CurrentRequest = ordinal

	if p.CompletedRequests > 0 && p.StartTime != nil {
		elapsed := time.Since(*p.StartTime).Seconds()
		if elapsed > 0 {
			rate := float64(p.CompletedRequests) / elapsed
			remaining := p.TotalRequests - p.CompletedRequests
			if rate > 0 {
				p.EstimatedRemaining = float64(remaining) / rate
			}
		}
	}
}

// MarshalJSON adds the computed percentage and elapsed fields alongside
// the stored counters.
func (p JobProgress) MarshalJSON() ([]byte, error) {
	type alias JobProgress
	return json.Marshal(struct {
		alias
		ProgressPercentage float64 `json:"progress_percentage"`
		ElapsedTime        float64 `json:"elapsed_time"`
	}{
		alias:              alias(p),
		ProgressPercentage: p.Percentage(),
		ElapsedTime:        p.Elapsed(),
	})
}

// Job is one execution attempt over a corpus run: an HTTPConfig
// snapshot, a progress record, and the status machine
//
//	PENDING -> RUNNING -> COMPLETED | FAILED | CANCELLED
//	PENDING -> CANCELLED (never started)
//	FAILED | CANCELLED -> PENDING (explicit resume)
//
// All status mutations go through the Mark* methods, which reject
// transitions outside those edges.
type Job struct {
	ID         string      `json:"id" badgerhold:"key"`
	Name       string      `json:"name"`
	Status     JobStatus   `json:"status" badgerhold:"index"`
	RunID      uint64      `json:"request_id" badgerhold:"index"`
	HTTPConfig HTTPConfig  `json:"http_config"`
	Progress   JobProgress `json:"progress"`
	Error      string      `json:"error_message,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewJob creates a pending job over the given run.
func NewJob(name string, runID uint64, totalRequests int, config HTTPConfig) *Job {
	now := time.Now()
	return &Job{
		ID:     uuid.New().String(),
		Name:   name,
		Status: JobStatusPending,
		RunID:  runID,
		HTTPConfig: config,
		Progress: JobProgress{
			TotalRequests: totalRequests,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal reports whether the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusCancelled
}

// MarkStarted transitions PENDING -> RUNNING and records the start time.
func (j *Job) MarkStarted() error {
	if j.Status != JobStatusPending {
		return NewForbiddenTransition("cannot start job in state %s", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusRunning
	j.Progress.StartTime = &now
	j.Progress.EndTime = nil
	j.UpdatedAt = now
	return nil
}

// MarkCompleted transitions RUNNING -> COMPLETED.
func (j *Job) MarkCompleted() error {
	if j.Status != JobStatusRunning {
		return NewForbiddenTransition("cannot complete job in state %s", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Progress.EndTime = &now
	j.UpdatedAt = now
	return nil
}

// MarkFailed transitions RUNNING -> FAILED with a terminal message.
func (j *Job) MarkFailed(errorMsg string) error {
	if j.Status != JobStatusRunning {
		return NewForbiddenTransition("cannot fail job in state %s", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.Error = errorMsg
	j.Progress.EndTime = &now
	j.UpdatedAt = now
	return nil
}

// MarkCancelled transitions PENDING or RUNNING -> CANCELLED.
func (j *Job) MarkCancelled() error {
	if j.Status != JobStatusPending && j.Status != JobStatusRunning {
		return NewForbiddenTransition("cannot cancel job in state %s", j.Status)
	}
	now := time.Now()
	j.Status = JobStatusCancelled
	j.Progress.EndTime = &now
	j.UpdatedAt = now
	return nil
}

// MarkResumed transitions CANCELLED or FAILED back to PENDING, clearing
// the terminal error and resetting progress. Results from the previous
// attempt are discarded by the caller before rescheduling.
func (j *Job) MarkResumed() error {
	if j.Status != JobStatusCancelled && j.Status != JobStatusFailed {
		return NewForbiddenTransition("cannot resume job in state %s", j.Status)
	}
	j.Status = JobStatusPending
	j.Error = ""
	j.Progress = JobProgress{
		TotalRequests: j.Progress.TotalRequests,
	}
	j.UpdatedAt = time.Now()
	return nil
}

// JobStatistics aggregates job counts by status.
type JobStatistics struct {
	TotalJobs          int            `json:"total_jobs"`
	StatusDistribution map[string]int `json:"status_distribution"`
	ActiveJobs         int            `json:"active_jobs"`
}
