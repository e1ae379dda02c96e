package interfaces

import (
	"context"

	"github.com/ternarybob/tento/internal/models"
)

// JobService - job lifecycle, scheduling, and execution
type JobService interface {
	// CreateJob registers a pending job over a stored run. An empty
	// name gets a run-derived default. The dispatcher picks the job up
	// asynchronously.
	CreateJob(ctx context.Context, runID uint64, name string, config models.HTTPConfig) (*models.Job, error)

	// ExecuteSingle sends one generated request synchronously without
	// creating a job. Position is zero-based.
	ExecuteSingle(ctx context.Context, runID uint64, position int, config models.HTTPConfig) (*models.ExecuteSingleResponse, error)

	// GetJob returns the job by id.
	GetJob(ctx context.Context, id string) (*models.Job, error)

	// ListJobs returns all jobs newest-first.
	ListJobs(ctx context.Context) ([]*models.Job, error)

	// StopJob requests cancellation of a pending or running job.
	StopJob(ctx context.Context, id string) error

	// ResumeJob returns a cancelled or failed job to pending, dropping
	// results from the previous attempt.
	ResumeJob(ctx context.Context, id string) (*models.Job, error)

	// DeleteJob removes a terminal job and its results.
	DeleteJob(ctx context.Context, id string) error

	// CleanupJobs deletes terminal jobs older than maxAgeHours and
	// returns how many were removed.
	CleanupJobs(ctx context.Context, maxAgeHours float64) (int, error)

	// Statistics aggregates job counts by status.
	Statistics(ctx context.Context) (*models.JobStatistics, error)

	// Start launches the dispatcher loop.
	Start(ctx context.Context) error

	// Stop cancels running jobs and waits for the dispatcher to exit.
	Stop(ctx context.Context) error
}
