package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleHappyPath(t *testing.T) {
	job := NewJob("batch", 7, 10, DefaultHTTPConfig())
	require.Equal(t, JobStatusPending, job.Status)
	require.NotEmpty(t, job.ID)
	assert.False(t, job.IsTerminal())

	require.NoError(t, job.MarkStarted())
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.Progress.StartTime)

	require.NoError(t, job.MarkCompleted())
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.Progress.EndTime)
	assert.True(t, job.IsTerminal())
}

func TestJobTransitionRules(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		move func(*Job) error
		ok   bool
	}{
		{"start pending", JobStatusPending, (*Job).MarkStarted, true},
		{"start running", JobStatusRunning, (*Job).MarkStarted, false},
		{"start completed", JobStatusCompleted, (*Job).MarkStarted, false},
		{"complete running", JobStatusRunning, (*Job).MarkCompleted, true},
		{"complete pending", JobStatusPending, (*Job).MarkCompleted, false},
		{"cancel pending", JobStatusPending, (*Job).MarkCancelled, true},
		{"cancel running", JobStatusRunning, (*Job).MarkCancelled, true},
		{"cancel completed", JobStatusCompleted, (*Job).MarkCancelled, false},
		{"cancel cancelled", JobStatusCancelled, (*Job).MarkCancelled, false},
		{"resume cancelled", JobStatusCancelled, (*Job).MarkResumed, true},
		{"resume failed", JobStatusFailed, (*Job).MarkResumed, true},
		{"resume completed", JobStatusCompleted, (*Job).MarkResumed, false},
		{"resume running", JobStatusRunning, (*Job).MarkResumed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob("j", 1, 5, DefaultHTTPConfig())
			job.Status = tt.from
			err := tt.move(job)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, ErrForbiddenTransition, KindOf(err))
				assert.Equal(t, tt.from, job.Status)
			}
		})
	}
}

func TestJobMarkFailedOnlyFromRunning(t *testing.T) {
	job := NewJob("j", 1, 5, DefaultHTTPConfig())
	require.Error(t, job.MarkFailed("boom"))

	require.NoError(t, job.MarkStarted())
	require.NoError(t, job.MarkFailed("boom"))
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)
}

func TestJobResumeResetsProgressAndError(t *testing.T) {
	job := NewJob("j", 1, 8, DefaultHTTPConfig())
	require.NoError(t, job.MarkStarted())
	job.Progress.RecordResult(3, true)
	job.Progress.RecordResult(4, false)
	require.NoError(t, job.MarkFailed("transport died"))

	require.NoError(t, job.MarkResumed())
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Empty(t, job.Error)
	assert.Equal(t, 8, job.Progress.TotalRequests)
	assert.Zero(t, job.Progress.CompletedRequests)
	assert.Zero(t, job.Progress.SuccessfulRequests)
	assert.Zero(t, job.Progress.FailedRequests)
	assert.Nil(t, job.Progress.StartTime)
	assert.Nil(t, job.Progress.EndTime)
}

func TestJobProgressCounters(t *testing.T) {
	start := time.Now().Add(-2 * time.Second)
	p := JobProgress{TotalRequests: 4, StartTime: &start}

	p.RecordResult(1, true)
	p.RecordResult(2, false)

	assert.Equal(t, 2, p.CompletedRequests)
	assert.Equal(t, 1, p.SuccessfulRequests)
	assert.Equal(t, 1, p.FailedRequests)
	assert.Equal(t, 2, p.CurrentRequest)
	assert.InDelta(t, 50.0, p.Percentage(), 0.001)
	assert.Greater(t, p.EstimatedRemaining, 0.0)
}

func TestJobProgressPercentageZeroTotal(t *testing.T) {
	p := JobProgress{}
	assert.Zero(t, p.Percentage())
	assert.Zero(t, p.Elapsed())
}

func TestJobProgressJSONIncludesComputedFields(t *testing.T) {
	start := time.Now().Add(-time.Second)
	p := JobProgress{TotalRequests: 2, CompletedRequests: 1, StartTime: &start}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "progress_percentage")
	assert.Contains(t, m, "elapsed_time")
	assert.InDelta(t, 50.0, m["progress_percentage"].(float64), 0.001)
}

func TestJobViewProjection(t *testing.T) {
	job := NewJob("batch", 42, 3, DefaultHTTPConfig())
	job.Error = "oops"

	view := job.View()
	assert.Equal(t, job.ID, view.JobID)
	assert.Equal(t, uint64(42), view.RequestID)
	assert.Equal(t, "oops", view.ErrorMessage)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "job_id")
	assert.Contains(t, m, "request_id")
}
