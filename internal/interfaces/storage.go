// -----------------------------------------------------------------------
// Storage interfaces - corpus runs, jobs, results
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/tento/internal/models"
)

// CorpusStorage - persistence for corpus runs and their generated rows
type CorpusStorage interface {
	// SaveRun persists a run header plus its generated sequence in one
	// transaction, assigning run.ID and row ordinals.
	SaveRun(ctx context.Context, run *models.CorpusRun, requests []*models.GeneratedRequest) error

	// GetRun returns the run header by id.
	GetRun(ctx context.Context, id uint64) (*models.CorpusRun, error)

	// ListRuns returns run headers newest-first.
	ListRuns(ctx context.Context, limit, offset int) ([]*models.CorpusRun, error)

	// DeleteRun removes the run and cascades to its generated rows.
	DeleteRun(ctx context.Context, id uint64) error

	// GetRequests returns the generated sequence in ordinal order.
	GetRequests(ctx context.Context, runID uint64) ([]*models.GeneratedRequest, error)

	// GetRequestAt returns the row at a zero-based position.
	GetRequestAt(ctx context.Context, runID uint64, position int) (*models.GeneratedRequest, error)

	// CountRuns returns the number of stored runs.
	CountRuns(ctx context.Context) (int, error)

	// Statistics aggregates run totals and per-strategy counts.
	Statistics(ctx context.Context) (*models.CorpusStatistics, error)
}

// JobStorage - persistence for execution jobs
type JobStorage interface {
	// SaveJob upserts the job record.
	SaveJob(ctx context.Context, job *models.Job) error

	// GetJob returns the job by id.
	GetJob(ctx context.Context, id string) (*models.Job, error)

	// ListJobs returns all jobs newest-first.
	ListJobs(ctx context.Context) ([]*models.Job, error)

	// GetJobsByStatus returns jobs in the given state.
	GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)

	// DeleteJob removes the job record.
	DeleteJob(ctx context.Context, id string) error

	// DeleteTerminalBefore removes completed, failed, and cancelled jobs
	// created before the cutoff, returning their ids.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// Statistics aggregates job counts by status.
	Statistics(ctx context.Context) (*models.JobStatistics, error)
}

// ResultStorage - append-only per-job result log
type ResultStorage interface {
	// AppendResult stores one per-request outcome.
	AppendResult(ctx context.Context, result *models.JobResult) error

	// GetResults returns a job's results oldest-first within the window.
	GetResults(ctx context.Context, jobID string, limit, offset int) ([]*models.JobResult, error)

	// GetResultByOrdinal returns the single full row for one request.
	GetResultByOrdinal(ctx context.Context, jobID string, ordinal int) (*models.JobResult, error)

	// CountResults returns the number of stored results for a job.
	CountResults(ctx context.Context, jobID string) (int, error)

	// DeleteResults removes every result of a job. Used on job delete
	// and before a resumed job re-executes.
	DeleteResults(ctx context.Context, jobID string) error

	// ForEachResult streams a job's results oldest-first without
	// loading the whole log. Returning an error stops the walk.
	ForEachResult(ctx context.Context, jobID string, fn func(*models.JobResult) error) error
}

// StorageManager - unified access to the backing stores
type StorageManager interface {
	Corpus() CorpusStorage
	Jobs() JobStorage
	Results() ResultStorage

	// Close releases the underlying database.
	Close() error
}
