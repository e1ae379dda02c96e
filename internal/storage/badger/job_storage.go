package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return models.NewStorageError(err, "failed to save job %s", job.ID)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFound("job not found: %s", id)
		}
		return nil, models.NewStorageError(err, "failed to get job %s", id)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, models.NewStorageError(err, "failed to list jobs")
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, models.NewStorageError(err, "failed to list jobs with status %s", status)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Job{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.NewNotFound("job not found: %s", id)
		}
		return models.NewStorageError(err, "failed to delete job %s", id)
	}
	return nil
}

// DeleteTerminalBefore removes terminal jobs older than the cutoff.
// Running and pending jobs are never touched.
func (s *JobStorage) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").
		In(models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled).
		And("CreatedAt").Lt(cutoff)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, models.NewStorageError(err, "failed to find jobs for cleanup")
	}

	deleted := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if err := s.db.Store().Delete(job.ID, &models.Job{}); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return deleted, models.NewStorageError(err, "failed to delete job %s during cleanup", job.ID)
		}
		deleted = append(deleted, job.ID)
	}

	if len(deleted) > 0 {
		s.logger.Debug().Int("count", len(deleted)).Msg("Terminal jobs removed by cleanup")
	}
	return deleted, nil
}

func (s *JobStorage) Statistics(ctx context.Context) (*models.JobStatistics, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, nil); err != nil {
		return nil, models.NewStorageError(err, "failed to load jobs for statistics")
	}

	stats := &models.JobStatistics{
		StatusDistribution: make(map[string]int),
	}
	for _, status := range []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusRunning,
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	} {
		stats.StatusDistribution[string(status)] = 0
	}
	for _, job := range jobs {
		stats.TotalJobs++
		stats.StatusDistribution[string(job.Status)]++
		if job.Status == models.JobStatusPending || job.Status == models.JobStatusRunning {
			stats.ActiveJobs++
		}
	}
	return stats, nil
}
