package jobs

import (
	"context"
	"errors"

	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
)

// runJob drives one job from RUNNING to a terminal state: loads the
// run's generated sequence, executes it in the configured mode, and
// appends results in ordinal order as they are delivered. Result
// ordinals are 1-based to match the request numbering in the API.
func (s *Service) runJob(ctx context.Context, job *models.Job) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running--
		delete(s.cancels, job.ID)
		s.mu.Unlock()
		s.cond.Signal()
	}()

	s.mu.Lock()
	snapshot := *job
	s.mu.Unlock()
	if err := s.storage.Jobs().SaveJob(context.Background(), &snapshot); err != nil {
		s.failJob(job, err.Error())
		return
	}
	s.logger.Info().Str("job_id", job.ID).Msg("Job started")
	s.publishJobEvent(ctx, interfaces.EventJobStarted, &snapshot)

	rows, err := s.storage.Corpus().GetRequests(context.Background(), job.RunID)
	if err != nil {
		s.failJob(job, err.Error())
		return
	}
	contents := make([]string, len(rows))
	for i, row := range rows {
		contents[i] = row.Content
	}

	var appendErr error
	batchErr := s.executor.ExecuteBatch(ctx, contents, job.HTTPConfig, func(ordinal int, response *models.HTTPResponse) {
		if appendErr != nil {
			return
		}
		row := rows[ordinal]
		result := models.NewJobResult(job.ID, ordinal+1, row.Content, row.Provenance, response)
		// Result writes use the background context so a cancelled job
		// still persists the request that just finished.
		if err := s.storage.Results().AppendResult(context.Background(), result); err != nil {
			appendErr = err
			return
		}

		s.mu.Lock()
		job.Progress.RecordResult(ordinal+1, result.Success)
		progress := *job
		s.mu.Unlock()

		if err := s.storage.Jobs().SaveJob(context.Background(), &progress); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist job progress")
		}
		s.publishJobEvent(ctx, interfaces.EventJobProgress, &progress)
	})

	s.finishJob(job, batchErr, appendErr)
}

// finishJob applies the terminal transition. A job already moved to a
// terminal state externally (cancel) is left as is.
func (s *Service) finishJob(job *models.Job, batchErr, appendErr error) {
	s.mu.Lock()
	eventType := interfaces.EventType("")
	switch {
	case job.Status != models.JobStatusRunning:
		// Cancelled externally; status was written by StopJob.
	case appendErr != nil:
		_ = job.MarkFailed(appendErr.Error())
		eventType = interfaces.EventJobFailed
	case batchErr != nil && (errors.Is(batchErr, context.Canceled) || errors.Is(batchErr, context.DeadlineExceeded)):
		_ = job.MarkCancelled()
		eventType = interfaces.EventJobCancelled
	case batchErr != nil:
		_ = job.MarkFailed(batchErr.Error())
		eventType = interfaces.EventJobFailed
	default:
		_ = job.MarkCompleted()
		eventType = interfaces.EventJobCompleted
	}
	snapshot := *job
	s.mu.Unlock()

	if err := s.storage.Jobs().SaveJob(context.Background(), &snapshot); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist terminal job state")
	}

	switch snapshot.Status {
	case models.JobStatusCompleted:
		s.logger.Info().
			Str("job_id", job.ID).
			Int("completed", snapshot.Progress.CompletedRequests).
			Int("failed", snapshot.Progress.FailedRequests).
			Msg("Job completed")
	case models.JobStatusFailed:
		s.logger.Warn().Str("job_id", job.ID).Str("error", snapshot.Error).Msg("Job failed")
	case models.JobStatusCancelled:
		s.logger.Info().Str("job_id", job.ID).Msg("Job cancelled during execution")
	}

	if eventType != "" {
		s.publishJobEvent(context.Background(), eventType, &snapshot)
	}
}

// failJob force-fails a running job outside the normal batch path,
// e.g. when its run cannot be loaded.
func (s *Service) failJob(job *models.Job, message string) {
	s.mu.Lock()
	if job.Status == models.JobStatusRunning {
		_ = job.MarkFailed(message)
	}
	snapshot := *job
	s.mu.Unlock()

	if err := s.storage.Jobs().SaveJob(context.Background(), &snapshot); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist failed job state")
	}
	s.logger.Warn().Str("job_id", job.ID).Str("error", message).Msg("Job failed")
	s.publishJobEvent(context.Background(), interfaces.EventJobFailed, &snapshot)
}
